package api

import "time"

// FormField describes one input the upload form renders.
type FormField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder,omitempty"`
}

// FormConfig is the form layout served to the frontend.
type FormConfig struct {
	Fields      []FormField `json:"fields"`
	Version     string      `json:"version"`
	LastUpdated string      `json:"last_updated"`
}

// NewFormConfig returns the upload form layout stamped with now.
func NewFormConfig(now time.Time) FormConfig {
	return FormConfig{
		Fields: []FormField{
			{Name: "prenom", Type: "text", Label: "Prénom", Required: true, Placeholder: "Votre prénom"},
			{Name: "nom", Type: "text", Label: "Nom", Required: true, Placeholder: "Votre nom"},
			{Name: "email", Type: "email", Label: "Email", Required: true, Placeholder: "votre@email.com"},
			{Name: "telephone", Type: "tel", Label: "Téléphone", Placeholder: "01 23 45 67 89"},
			{Name: "localisation", Type: "text", Label: "Localisation", Placeholder: "Ville, Région"},
			{Name: "date_disponibilite", Type: "date", Label: "Date de disponibilité"},
			{Name: "rgpd_consent", Type: "checkbox", Label: "J'accepte le traitement de mes données personnelles conformément au RGPD", Required: true},
		},
		Version:     "1.0",
		LastUpdated: now.UTC().Format(time.RFC3339),
	}
}
