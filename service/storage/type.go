package storage

// IService persists evidence files and returns the URL path they are
// served under.
type IService interface {
	StoreFile(name string, data []byte) (string, error)
}
