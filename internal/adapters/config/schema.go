package config

// Recognized variant keys in a manifest source table.
const (
	variantGit = "git"
	variantTar = "tar"
)

func knownVariant(key string) bool {
	return key == variantGit || key == variantTar
}
