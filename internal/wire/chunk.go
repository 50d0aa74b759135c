package wire

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Binary chunk frames carry raw audio bytes with a UTF-8 header:
//
//	<uploadId>:<seq>|<payload bytes>
//
// The header ends at the first '|'; everything after it is opaque payload and
// may itself contain '|' or ':' bytes.

// EncodeChunk frames one chunk of an upload.
func EncodeChunk(uploadID string, seq int, payload []byte) []byte {
	header := fmt.Sprintf("%s:%d|", uploadID, seq)
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

// DecodeChunk splits a binary chunk frame back into its parts.
func DecodeChunk(frame []byte) (uploadID string, seq int, payload []byte, err error) {
	sep := bytes.IndexByte(frame, '|')
	if sep < 0 {
		return "", 0, nil, fmt.Errorf("chunk frame: missing header delimiter")
	}
	header := string(frame[:sep])
	colon := strings.LastIndexByte(header, ':')
	if colon < 0 {
		return "", 0, nil, fmt.Errorf("chunk frame: malformed header %q", header)
	}
	seq, err = strconv.Atoi(header[colon+1:])
	if err != nil {
		return "", 0, nil, fmt.Errorf("chunk frame: bad seq in header %q: %w", header, err)
	}
	return header[:colon], seq, frame[sep+1:], nil
}

// SplitChunks slices blob into consecutive chunks of at most maxChunkBytes.
// A zero-length blob yields a single empty chunk so the server still sees a
// complete handshake.
func SplitChunks(blob []byte, maxChunkBytes int) [][]byte {
	if maxChunkBytes <= 0 {
		return nil
	}
	if len(blob) == 0 {
		return [][]byte{{}}
	}
	chunks := make([][]byte, 0, (len(blob)+maxChunkBytes-1)/maxChunkBytes)
	for off := 0; off < len(blob); off += maxChunkBytes {
		end := off + maxChunkBytes
		if end > len(blob) {
			end = len(blob)
		}
		chunks = append(chunks, blob[off:end])
	}
	return chunks
}
