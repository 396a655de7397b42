package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"marksix-lab/internal/domain"
)

// ComputeDatasetID computes a deterministic dataset_id over an ordered draw series.
// Formula: SHA256 of one line per draw,
// period|date(RFC3339, UTC)|draw_year|n1,..,n6|special.
// Every field that drives attribute derivation or ordering is covered.
// Returns hex-encoded hash (64 characters).
func ComputeDatasetID(draws []domain.Draw) string {
	h := sha256.New()
	for _, d := range draws {
		n := d.Numbers
		fmt.Fprintf(h, "%s|%s|%d|%d,%d,%d,%d,%d,%d|%d\n",
			d.Period,
			d.Date.UTC().Format(time.RFC3339Nano),
			d.DrawYear(),
			n[0], n[1], n[2], n[3], n[4], n[5],
			d.Special,
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}
