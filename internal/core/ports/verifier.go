package ports

// Verifier computes content stamps over artefact trees.
//
//go:generate go run go.uber.org/mock/mockgen -source=verifier.go -destination=mocks/mock_verifier.go -package=mocks
type Verifier interface {
	// Stamp computes a deterministic content stamp of the directory tree
	// rooted at dir.
	Stamp(dir string) (string, error)
}
