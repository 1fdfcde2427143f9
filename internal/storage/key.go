package storage

import (
	"fmt"
	"path"
	"strings"
)

// objectKey joins folder and name into a slash-separated key, refusing
// anything that is absolute, empty or climbs out with "..".
func objectKey(folder, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: name %q", ErrInvalidKey, name)
	}
	if err := checkFolder(folder); err != nil {
		return "", err
	}
	if name == "." || name == ".." {
		return "", fmt.Errorf("%w: name %q", ErrInvalidKey, name)
	}
	return path.Join(folder, name), nil
}

func checkFolder(folder string) error {
	if folder == "" || strings.HasPrefix(folder, "/") || strings.Contains(folder, `\`) {
		return fmt.Errorf("%w: folder %q", ErrInvalidKey, folder)
	}
	for _, part := range strings.Split(folder, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: folder %q", ErrInvalidKey, folder)
		}
	}
	return nil
}
