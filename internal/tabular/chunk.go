package tabular

import (
	"os"

	"github.com/rotisserie/eris"
)

// Chunk is an ordered, bounded subset of a table's rows.
type Chunk struct {
	Index int
	Rows  []Row
}

// ChunkSize picks the per-chunk row count by total row count. Bigger files
// get bigger chunks so the chunk count stays manageable.
func ChunkSize(totalRows int) int {
	switch {
	case totalRows > 2000:
		return 150
	case totalRows > 500:
		return 100
	default:
		return 50
	}
}

// Split partitions rows into ordered chunks of at most size rows.
func Split(rows []Row, size int) []Chunk {
	if size <= 0 {
		size = 50
	}
	var chunks []Chunk
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Rows: rows[start:end]})
	}
	return chunks
}

// WriteChunk writes a chunk to a temporary CSV file and returns its path.
// The caller owns the file and must remove it on every exit path.
func WriteChunk(headers []string, rows []Row) (string, error) {
	f, err := os.CreateTemp("", "chunk-*.csv")
	if err != nil {
		return "", eris.Wrap(err, "tabular: create chunk file")
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", eris.Wrap(err, "tabular: close chunk file")
	}
	if err := WriteCSV(path, headers, rows); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
