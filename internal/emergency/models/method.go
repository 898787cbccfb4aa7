package models

import (
	"encoding/json"
	"fmt"
	"time"

	dErrors "lifeline/pkg/domain-errors"
)

// MethodKind names a verification method.
type MethodKind string

const (
	MethodQRCode     MethodKind = "qr_code"
	MethodNFC        MethodKind = "nfc"
	MethodBiometric  MethodKind = "biometric"
	MethodNationalID MethodKind = "national_id"
	MethodOTP        MethodKind = "otp_fallback"
)

// AllMethodKinds lists every supported kind in a stable order.
var AllMethodKinds = []MethodKind{MethodQRCode, MethodNFC, MethodBiometric, MethodNationalID, MethodOTP}

// ParseMethodKind validates external input.
func ParseMethodKind(s string) (MethodKind, error) {
	k := MethodKind(s)
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported method kind")
	}
	return k, nil
}

func (k MethodKind) IsValid() bool {
	switch k {
	case MethodQRCode, MethodNFC, MethodBiometric, MethodNationalID, MethodOTP:
		return true
	}
	return false
}

// IsTokenLookup reports whether a presented credential of this kind doubles as
// a lookup key, so a request may omit the profile reference.
func (k MethodKind) IsTokenLookup() bool {
	return k == MethodQRCode || k == MethodNFC
}

func (k MethodKind) String() string { return string(k) }

// BiometricModality distinguishes biometric templates.
type BiometricModality string

const (
	ModalityFace        BiometricModality = "face"
	ModalityFingerprint BiometricModality = "fingerprint"
)

func (m BiometricModality) IsValid() bool {
	return m == ModalityFace || m == ModalityFingerprint
}

// MethodState holds the bookkeeping every method kind shares.
type MethodState struct {
	Enabled    bool       `json:"enabled"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	UseCount   int        `json:"use_count"`
}

// State returns the shared bookkeeping.
func (s MethodState) State() MethodState { return s }

// AccessMethod is a closed union over the supported verification methods.
// Only types in this package implement it; each carries only the secret
// material relevant to its kind.
type AccessMethod interface {
	Kind() MethodKind
	State() MethodState
	// Expiry returns the expiry time for kinds that expire.
	Expiry() (time.Time, bool)
	accessMethod()
}

// TokenMethod is implemented by kinds whose credential is also a lookup key.
type TokenMethod interface {
	AccessMethod
	LookupDigest() string
}

// MaxRetiredQRDigests bounds how many superseded QR tokens stay recognizable.
const MaxRetiredQRDigests = 5

// QRCodeMethod stores the digest of the currently issued QR token.
// The token itself is handed to the patient once and never persisted.
// RetiredDigests holds digests of earlier tokens, newest first, so a stale
// card reads as expired rather than as a guess.
type QRCodeMethod struct {
	MethodState
	TokenDigest    string    `json:"token_digest"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	RetiredDigests []string  `json:"retired_digests,omitempty"`
}

// Supersede returns m carrying prev's live and retired digests as retired.
func (m QRCodeMethod) Supersede(prev QRCodeMethod) QRCodeMethod {
	retired := make([]string, 0, MaxRetiredQRDigests)
	if prev.TokenDigest != "" {
		retired = append(retired, prev.TokenDigest)
	}
	for _, d := range prev.RetiredDigests {
		if len(retired) == MaxRetiredQRDigests {
			break
		}
		if d != m.TokenDigest {
			retired = append(retired, d)
		}
	}
	m.RetiredDigests = retired
	return m
}

// NFCMethod stores the digest of a registered NFC tag identifier.
type NFCMethod struct {
	MethodState
	TagDigest    string    `json:"tag_digest"`
	RegisteredAt time.Time `json:"registered_at"`
}

// BiometricMethod stores the digest of an enrolled template hash.
type BiometricMethod struct {
	MethodState
	Modality       BiometricModality `json:"modality"`
	TemplateDigest string            `json:"template_digest"`
}

// NationalIDMethod stores a bcrypt hash of the national identity number.
type NationalIDMethod struct {
	MethodState
	NumberHash     string     `json:"number_hash"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
}

// OTPFallbackMethod stores a bcrypt hash of a one-time code sent to guardians.
type OTPFallbackMethod struct {
	MethodState
	GuardianPhones []string  `json:"guardian_phones"`
	CodeHash       string    `json:"code_hash"`
	ExpiresAt      time.Time `json:"expires_at"`
	Consumed       bool      `json:"consumed"`
}

func (QRCodeMethod) Kind() MethodKind      { return MethodQRCode }
func (NFCMethod) Kind() MethodKind         { return MethodNFC }
func (BiometricMethod) Kind() MethodKind   { return MethodBiometric }
func (NationalIDMethod) Kind() MethodKind  { return MethodNationalID }
func (OTPFallbackMethod) Kind() MethodKind { return MethodOTP }

func (m QRCodeMethod) Expiry() (time.Time, bool)      { return m.ExpiresAt, true }
func (NFCMethod) Expiry() (time.Time, bool)           { return time.Time{}, false }
func (BiometricMethod) Expiry() (time.Time, bool)     { return time.Time{}, false }
func (NationalIDMethod) Expiry() (time.Time, bool)    { return time.Time{}, false }
func (m OTPFallbackMethod) Expiry() (time.Time, bool) { return m.ExpiresAt, true }

func (m QRCodeMethod) LookupDigest() string { return m.TokenDigest }
func (m NFCMethod) LookupDigest() string    { return m.TagDigest }

func (QRCodeMethod) accessMethod()      {}
func (NFCMethod) accessMethod()         {}
func (BiometricMethod) accessMethod()   {}
func (NationalIDMethod) accessMethod()  {}
func (OTPFallbackMethod) accessMethod() {}

// IsExpiredAt reports whether m has an expiry at or before now.
// A consumed OTP code counts as expired.
func IsExpiredAt(m AccessMethod, now time.Time) bool {
	if otp, ok := m.(OTPFallbackMethod); ok && otp.Consumed {
		return true
	}
	exp, ok := m.Expiry()
	return ok && !now.Before(exp)
}

// RecordUse returns a copy of m with usage counters advanced. OTP codes are
// single-use and are marked consumed.
func RecordUse(m AccessMethod, at time.Time) AccessMethod {
	touch := func(s MethodState) MethodState {
		s.UseCount++
		s.LastUsedAt = &at
		return s
	}
	switch v := m.(type) {
	case QRCodeMethod:
		v.MethodState = touch(v.MethodState)
		return v
	case NFCMethod:
		v.MethodState = touch(v.MethodState)
		return v
	case BiometricMethod:
		v.MethodState = touch(v.MethodState)
		return v
	case NationalIDMethod:
		v.MethodState = touch(v.MethodState)
		v.LastVerifiedAt = &at
		return v
	case OTPFallbackMethod:
		v.MethodState = touch(v.MethodState)
		v.Consumed = true
		return v
	}
	return m
}

// WithEnabled returns a copy of m with the enabled flag set.
func WithEnabled(m AccessMethod, enabled bool) AccessMethod {
	switch v := m.(type) {
	case QRCodeMethod:
		v.Enabled = enabled
		return v
	case NFCMethod:
		v.Enabled = enabled
		return v
	case BiometricMethod:
		v.Enabled = enabled
		return v
	case NationalIDMethod:
		v.Enabled = enabled
		return v
	case OTPFallbackMethod:
		v.Enabled = enabled
		return v
	}
	return m
}

// EncodeMethod serializes a method for storage. The kind travels separately.
func EncodeMethod(m AccessMethod) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMethod restores a method from its kind and payload.
func DecodeMethod(kind MethodKind, payload []byte) (AccessMethod, error) {
	var (
		m   AccessMethod
		err error
	)
	switch kind {
	case MethodQRCode:
		var v QRCodeMethod
		err = json.Unmarshal(payload, &v)
		m = v
	case MethodNFC:
		var v NFCMethod
		err = json.Unmarshal(payload, &v)
		m = v
	case MethodBiometric:
		var v BiometricMethod
		err = json.Unmarshal(payload, &v)
		m = v
	case MethodNationalID:
		var v NationalIDMethod
		err = json.Unmarshal(payload, &v)
		m = v
	case MethodOTP:
		var v OTPFallbackMethod
		err = json.Unmarshal(payload, &v)
		m = v
	default:
		return nil, fmt.Errorf("decode method: unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s method: %w", kind, err)
	}
	return m, nil
}

// MethodEnvelope is the {kind, data} wire shape of a method.
type MethodEnvelope struct {
	Kind MethodKind      `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalMethods encodes a method set as a list of envelopes in stable kind order.
func MarshalMethods(methods map[MethodKind]AccessMethod) ([]byte, error) {
	envs := make([]MethodEnvelope, 0, len(methods))
	for _, kind := range AllMethodKinds {
		m, ok := methods[kind]
		if !ok {
			continue
		}
		data, err := EncodeMethod(m)
		if err != nil {
			return nil, fmt.Errorf("encode %s method: %w", kind, err)
		}
		envs = append(envs, MethodEnvelope{Kind: kind, Data: data})
	}
	return json.Marshal(envs)
}

// UnmarshalMethods decodes the output of MarshalMethods.
func UnmarshalMethods(payload []byte) (map[MethodKind]AccessMethod, error) {
	var envs []MethodEnvelope
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &envs); err != nil {
			return nil, fmt.Errorf("decode method envelopes: %w", err)
		}
	}
	out := make(map[MethodKind]AccessMethod, len(envs))
	for _, env := range envs {
		m, err := DecodeMethod(env.Kind, env.Data)
		if err != nil {
			return nil, err
		}
		out[env.Kind] = m
	}
	return out, nil
}
