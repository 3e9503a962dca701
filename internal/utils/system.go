package utils

import (
	"os"
	"os/user"
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	user, err := user.Current()
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// GetHostname returns the system hostname.
func GetHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return hostname, nil
}

// CurrentUser returns the username, falling back to "unknown".
func CurrentUser() string {
	name, err := GetUsername()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}
