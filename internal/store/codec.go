package store

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/stratcomm/stratcomm-server-go/internal/game"
)

// encodeState renders a snapshot for storage: lz4-compressed JSON plus a
// checksum of the uncompressed form. The checksum is stored alongside the
// blob and verified on load so a corrupt row surfaces as an error instead
// of a half-broken game.
func encodeState(g *game.GameState) (blob []byte, checksum string, err error) {
	raw, err := game.EncodeSnapshot(g)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, "", fmt.Errorf("compress snapshot %s: %w", g.ID, err)
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("compress snapshot %s: %w", g.ID, err)
	}

	return buf.Bytes(), game.Checksum(g), nil
}

// decodeState reverses encodeState, verifying the stored checksum.
func decodeState(id string, blob []byte, checksum string) (*game.GameState, error) {
	zr := lz4.NewReader(bytes.NewReader(blob))
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot %s: %w", id, err)
	}

	g, err := game.DecodeSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	if sum := game.Checksum(g); sum != checksum {
		return nil, fmt.Errorf("snapshot %s failed checksum verification", id)
	}
	return g, nil
}
