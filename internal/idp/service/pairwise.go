package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// pairwiseSeparator keeps "ab"+"c" and "a"+"bc" from colliding.
const pairwiseSeparator = "\x1f"

// PairwiseSubjectService derives the per-sector subject identifier placed in
// the sub claim. The same user gets unlinkable identifiers in different
// sectors and a stable one within a sector.
type PairwiseSubjectService struct {
	salt []byte
}

func NewPairwiseSubjectService(salt string) (*PairwiseSubjectService, error) {
	if salt == "" {
		return nil, ErrMissingSalt
	}
	return &PairwiseSubjectService{salt: []byte(salt)}, nil
}

// Derive returns base64url(HMAC-SHA256(salt, userID || 0x1F || sectorID))
// without padding.
func (s *PairwiseSubjectService) Derive(userID, sectorID string) string {
	mac := hmac.New(sha256.New, s.salt)
	mac.Write([]byte(userID))
	mac.Write([]byte(pairwiseSeparator))
	mac.Write([]byte(sectorID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
