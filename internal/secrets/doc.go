// Package secrets interprets decrypted entry bodies.
//
// # Entry Layout
//
// An entry follows the usual password-store convention:
//
//	hunter2
//	username: alice
//	url: https://example.com
//
// The first line is the password. Everything after it is the body. When
// the body is a YAML mapping its keys become fields; otherwise any line of
// the form "key: value" is taken as a field and other lines are ignored.
//
// Field names match case-insensitively. The name "password" always refers
// to the first line.
package secrets
