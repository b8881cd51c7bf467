// Package token encodes and decodes the opaque payload carried in a
// participant's QR code. Tokens are bearer capabilities pointing at a
// registration and participant; they carry no signature, and all authority
// checks happen against live registration state at scan time.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"
)

var ErrMalformedToken = errors.New("malformed token")

// Payload is the structured record behind a QR code.
type Payload struct {
	RegistrationID string `json:"rid"`
	ParticipantID  string `json:"pid"`
	Index          int    `json:"idx"`
	Days           []int  `json:"days"`
	IssuedAt       int64  `json:"ts"`
	Hash           string `json:"hash"`
}

type Codec struct {
	now func() time.Time
}

func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// NewCodecAt pins the codec's clock, for tests.
func NewCodecAt(now func() time.Time) *Codec {
	return &Codec{now: now}
}

// Issue builds the token string for one participant of a registration.
// participantID should be the participant's id number, falling back to email;
// pass an empty string for neither and a positional placeholder is used so
// Decode never sees a payload without a pid.
func (c *Codec) Issue(registrationID, participantID string, index int, days []int) string {
	if participantID == "" {
		participantID = fmt.Sprintf("p%d", index+1)
	}
	ts := c.now().Unix()
	p := Payload{
		RegistrationID: registrationID,
		ParticipantID:  participantID,
		Index:          index,
		Days:           days,
		IssuedAt:       ts,
		Hash:           fingerprint(registrationID, participantID, ts),
	}
	b, _ := json.Marshal(p)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode is the exact inverse of Issue's serialization. Any structural
// mismatch, including a missing rid or pid, fails with ErrMalformedToken.
func (c *Codec) Decode(s string) (Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if p.RegistrationID == "" || p.ParticipantID == "" {
		return Payload{}, fmt.Errorf("%w: missing rid or pid", ErrMalformedToken)
	}
	return p, nil
}

// fingerprint is a short non-cryptographic tag that keeps regenerated tokens
// textually distinct. It is not a security boundary.
func fingerprint(rid, pid string, ts int64) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%d", rid, pid, ts)
	return fmt.Sprintf("%08x", h.Sum32())
}
