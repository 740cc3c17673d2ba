package types

// Version is the application version, overwritten at build time with -ldflags
var Version = "dev"

// Secret is a credential value. Values of this type are redacted from logs.
type Secret string

// String returns the raw secret value
func (s Secret) String() string {
	return string(s)
}
