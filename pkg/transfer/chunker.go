package transfer

import (
	"fmt"
	"io"
)

// Chunk is one slice of the encoded payload as written to the socket.
type Chunk struct {
	SequenceNo uint32
	Offset     int64 // payload offset
	Data       []byte
	IsLast     bool
}

// Chunker splits an in-memory payload into fixed-size writes.
type Chunker struct {
	data       []byte
	chunkSize  int
	currentSeq uint32
	offset     int64
}

func NewChunker(data []byte, chunkSize int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	return &Chunker{
		data:      data,
		chunkSize: chunkSize,
	}, nil
}

// Next returns the next chunk or io.EOF once the payload is exhausted.
// Chunks share memory with the payload.
func (c *Chunker) Next() (*Chunk, error) {
	total := int64(len(c.data))
	if c.offset >= total {
		return nil, io.EOF
	}

	end := c.offset + int64(c.chunkSize)
	if end > total {
		end = total
	}
	c.currentSeq++
	chunk := &Chunk{
		SequenceNo: c.currentSeq,
		Offset:     c.offset,
		Data:       c.data[c.offset:end],
		IsLast:     end == total,
	}
	c.offset = end
	return chunk, nil
}

// Progress is the cumulative percentage handed out so far, 0 to 100.
// An empty payload is complete from the start.
func (c *Chunker) Progress() float64 {
	if len(c.data) == 0 {
		return 100
	}
	return float64(c.offset) / float64(len(c.data)) * 100
}

func (c *Chunker) Remaining() int64 {
	return int64(len(c.data)) - c.offset
}
