package phh

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/lox/holdemtables/internal/fileutil"
	"github.com/lox/holdemtables/internal/table"
)

// Recorder is a table.Publisher that writes one .phh file per paid hand
// under dir/<table id>/.
type Recorder struct {
	dir    string
	logger *log.Logger
}

// NewRecorder creates dir if needed.
func NewRecorder(dir string, logger *log.Logger) (*Recorder, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("phh: create history dir: %w", err)
	}
	return &Recorder{dir: dir, logger: logger.WithPrefix("phh")}, nil
}

// Path returns where the hand is written.
func (r *Recorder) Path(sum *table.HandSummary) string {
	return filepath.Join(r.dir, sum.TableID, fmt.Sprintf("%06d-%s.phh", sum.Number, sum.HandID))
}

func (r *Recorder) Publish(_ context.Context, u table.Update) error {
	for _, e := range u.Snapshot.Events {
		if e.Type != table.EventHandEnded || e.Summary == nil {
			continue
		}
		if err := r.write(e.Summary); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) write(sum *table.HandSummary) error {
	data, err := EncodeToBytes(FromSummary(sum))
	if err != nil {
		return fmt.Errorf("phh: encode hand %s: %w", sum.HandID, err)
	}
	path := r.Path(sum)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("phh: write hand %s: %w", sum.HandID, err)
	}
	r.logger.Debug("Hand history written", "hand", sum.HandID, "path", path)
	return nil
}
