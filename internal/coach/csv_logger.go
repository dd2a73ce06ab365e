package coach

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/lowaak/form-coach/internal/engine"
)

const csvTimeFormat = "2006-01-02 15:04:05"

var csvHeader = []string{"Timestamp", "Exercise Name", "Repetitions"}

// CSVLogger appends one row per counted repetition to a CSV session log.
// The file is opened per write so the log is always flushed and survives
// crashes mid-session.
type CSVLogger struct {
	path   string
	logger *log.Logger
}

// NewCSVLogger creates the logger and writes the header row if the file
// does not exist yet.
func NewCSVLogger(path string, logger *log.Logger) (*CSVLogger, error) {
	if logger == nil {
		panic("CSVLogger: logger cannot be nil")
	}
	l := &CSVLogger{path: path, logger: logger}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := l.append(csvHeader); err != nil {
			return nil, fmt.Errorf("writing csv header: %w", err)
		}
		logger.Printf("CSVLogger: created %s", path)
	} else if err != nil {
		return nil, fmt.Errorf("checking csv log: %w", err)
	}
	return l, nil
}

// LogRep appends one repetition row.
func (l *CSVLogger) LogRep(ev engine.RepEvent) error {
	row := []string{
		ev.Timestamp.Format(csvTimeFormat),
		ev.Exercise,
		strconv.Itoa(ev.Count),
	}
	if err := l.append(row); err != nil {
		return fmt.Errorf("appending rep row: %w", err)
	}
	return nil
}

func (l *CSVLogger) append(row []string) error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
