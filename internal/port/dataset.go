package port

// Dataset is one translation source file. Version is the lower-cased file
// stem, e.g. "kjv" for kjv.txt.
type Dataset struct {
	Path    string
	Version string
	ModTime int64
	Size    int64
}

type DatasetFinder interface {
	Find(root string) ([]Dataset, error)
}
