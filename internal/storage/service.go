package storage

// Service provides the card identity cache operations.
type Service struct {
	db *DB
}

// NewService creates a new storage service.
func NewService(db *DB) *Service {
	return &Service{db: db}
}

// DB returns the underlying database.
func (s *Service) DB() *DB {
	return s.db
}

// Close closes the underlying database.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
