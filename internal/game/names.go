package game

import (
	"crypto/rand"
	"math/big"
)

// planetNames is the fixed pool of display names, consumed in generation
// order. It must be at least planetCountMax long.
var planetNames = []string{
	"Aster", "Brakka", "Cygnus", "Dione", "Erebus", "Falkor", "Gaia", "Helios",
	"Ionia", "Juno", "Kronos", "Lumen", "Myria", "Nyx", "Orion", "Prax", "Quasar", "Rhea",
}

// Game codes are short and unambiguous for reading over voice chat, so the
// alphabet skips I, O, 0 and 1.
const (
	gameIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	gameIDLength   = 6

	playerIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	playerIDLength   = 8
)

// NewGameID returns a fresh six character game code.
func NewGameID() string {
	return shortID(gameIDAlphabet, gameIDLength)
}

// NewPlayerID returns a fresh eight character player id.
func NewPlayerID() string {
	return shortID(playerIDAlphabet, playerIDLength)
}

func shortID(alphabet string, length int) string {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("game: crypto/rand unavailable: " + err.Error())
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}
