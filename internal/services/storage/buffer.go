package storage

import (
	"sync"
	"time"
	"webdetect/internal/logger"
	"webdetect/internal/models"
	"webdetect/internal/repository"
)

// BufferService collects request history in memory and writes it to the
// repository in batches, off the request path.
type BufferService struct {
	repo        repository.RequestLogRepository
	entries     []models.RequestLog
	bufferLimit int
	logger      *logger.Logger
	mu          sync.Mutex
	stopped     bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewBufferService(repo repository.RequestLogRepository, bufferLimit int, logger *logger.Logger) *BufferService {
	if bufferLimit <= 0 {
		bufferLimit = 1
	}
	return &BufferService{
		repo:        repo,
		bufferLimit: bufferLimit,
		entries:     make([]models.RequestLog, 0, bufferLimit),
		logger:      logger,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run flushes the buffer every flushInterval seconds until Stop is called.
func (s *BufferService) Run(flushInterval int) {
	defer close(s.done)

	if flushInterval <= 0 {
		flushInterval = 1
	}
	ticker := time.NewTicker(time.Duration(flushInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-s.stop:
			s.Flush()
			return
		}
	}
}

// Record adds an entry to the buffer. A full buffer is flushed immediately.
// Entries recorded after Stop are dropped.
func (s *BufferService) Record(entry models.RequestLog) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.entries = append(s.entries, entry)
	full := len(s.entries) >= s.bufferLimit
	s.mu.Unlock()

	if full {
		s.Flush()
	}
}

// Flush writes all buffered entries to the repository.
func (s *BufferService) Flush() error {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := s.entries
	s.entries = make([]models.RequestLog, 0, s.bufferLimit)
	s.mu.Unlock()

	if err := s.repo.InsertBatch(batch); err != nil {
		s.logger.Error("Error saving %d history entries: %v", len(batch), err)
		return err
	}

	s.logger.Info("Flushed %d history entries to database", len(batch))
	return nil
}

// Pending returns the number of entries waiting to be flushed.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop ends Run after a final flush and waits for it to return.
// It must only be called after Run has been started.
func (s *BufferService) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.stop)
	})
	<-s.done
}
