package methods

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lifeline/internal/emergency/models"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/phone"
)

// Params configures one method kind. It is a closed set.
type Params interface {
	Kind() models.MethodKind
	params()
}

// QRCodeParams issues a new QR token. Zero TTL uses the configured default.
type QRCodeParams struct {
	TTL time.Duration
}

// NFCParams registers the identifier of an NFC tag.
type NFCParams struct {
	TagID string
}

// BiometricParams enrolls the hash of a biometric template.
type BiometricParams struct {
	Modality models.BiometricModality
	Template string
}

// NationalIDParams stores a national identity number for verification.
type NationalIDParams struct {
	Number string
}

// OTPFallbackParams generates a one-time code for guardians.
// Zero TTL uses the configured default.
type OTPFallbackParams struct {
	GuardianPhones []string
	TTL            time.Duration
}

func (QRCodeParams) Kind() models.MethodKind      { return models.MethodQRCode }
func (NFCParams) Kind() models.MethodKind         { return models.MethodNFC }
func (BiometricParams) Kind() models.MethodKind   { return models.MethodBiometric }
func (NationalIDParams) Kind() models.MethodKind  { return models.MethodNationalID }
func (OTPFallbackParams) Kind() models.MethodKind { return models.MethodOTP }

func (QRCodeParams) params()      {}
func (NFCParams) params()         {}
func (BiometricParams) params()   {}
func (NationalIDParams) params()  {}
func (OTPFallbackParams) params() {}

// MethodHandle is returned from registration. Secret holds the one-time
// plaintext for generated credentials (QR token, OTP code) and is never stored.
type MethodHandle struct {
	ProfileID models.ProfileID
	Kind      models.MethodKind
	Secret    string
	ExpiresAt *time.Time
	Method    models.AccessMethod
}

// Builder creates methods from params. It holds no state besides its
// randomness source and tunables.
type Builder struct {
	rand       io.Reader
	qrTTL      time.Duration
	otpTTL     time.Duration
	otpDigits  int
	bcryptCost int
}

// Build creates a fresh, enabled method.
func (b *Builder) Build(profileID models.ProfileID, p Params, now time.Time) (*MethodHandle, error) {
	state := models.MethodState{Enabled: true, CreatedAt: now}
	h := &MethodHandle{ProfileID: profileID, Kind: p.Kind()}

	switch v := p.(type) {
	case QRCodeParams:
		ttl := v.TTL
		if ttl <= 0 {
			ttl = b.qrTTL
		}
		token, err := b.newQRToken(profileID, now)
		if err != nil {
			return nil, err
		}
		exp := now.Add(ttl)
		h.Secret, h.ExpiresAt = token, &exp
		h.Method = models.QRCodeMethod{MethodState: state, TokenDigest: Digest(token), IssuedAt: now, ExpiresAt: exp}

	case NFCParams:
		tag := normalizeTag(v.TagID)
		if tag == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "nfc tag id is required")
		}
		h.Method = models.NFCMethod{MethodState: state, TagDigest: Digest(tag), RegisteredAt: now}

	case BiometricParams:
		if !v.Modality.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "biometric modality must be face or fingerprint")
		}
		if v.Template == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "biometric template is required")
		}
		h.Method = models.BiometricMethod{MethodState: state, Modality: v.Modality, TemplateDigest: Digest(v.Template)}

	case NationalIDParams:
		number := normalizeNationalID(v.Number)
		if number == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "national id number is required")
		}
		hash, err := b.hash(number)
		if err != nil {
			return nil, err
		}
		h.Method = models.NationalIDMethod{MethodState: state, NumberHash: hash}

	case OTPFallbackParams:
		phones := phone.DedupeList(v.GuardianPhones)
		if len(phones) == 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "at least one guardian phone is required")
		}
		ttl := v.TTL
		if ttl <= 0 {
			ttl = b.otpTTL
		}
		code, err := b.newOTP()
		if err != nil {
			return nil, err
		}
		hash, err := b.hash(code)
		if err != nil {
			return nil, err
		}
		exp := now.Add(ttl)
		h.Secret, h.ExpiresAt = code, &exp
		h.Method = models.OTPFallbackMethod{
			MethodState:    state,
			GuardianPhones: phones,
			CodeHash:       hash,
			ExpiresAt:      exp,
		}

	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported method kind")
	}
	return h, nil
}

// newQRToken is the hex SHA-256 of profileID, issue time in epoch millis,
// and a 16-byte random nonce. It carries no patient data.
func (b *Builder) newQRToken(profileID models.ProfileID, now time.Time) (string, error) {
	nonce := make([]byte, 16)
	if _, err := io.ReadFull(b.rand, nonce); err != nil {
		return "", fmt.Errorf("generate qr nonce: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(profileID.String()))
	var ms [8]byte
	binary.BigEndian.PutUint64(ms[:], uint64(now.UnixMilli()))
	h.Write(ms[:])
	h.Write(nonce)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (b *Builder) newOTP() (string, error) {
	digits := b.otpDigits
	if digits <= 0 {
		digits = 6
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(b.rand, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

func (b *Builder) hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), b.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "secret is too long")
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}

// Digest is the lowercase hex SHA-256 of s.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func normalizeTag(tag string) string {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	return strings.NewReplacer(":", "", "-", "", " ", "").Replace(tag)
}

func normalizeNationalID(n string) string {
	n = strings.ToUpper(strings.TrimSpace(n))
	return strings.NewReplacer("-", "", " ", "", ".", "").Replace(n)
}

// NormalizeCredential applies the same normalization used at registration.
func NormalizeCredential(kind models.MethodKind, credential string) string {
	switch kind {
	case models.MethodNFC:
		return normalizeTag(credential)
	case models.MethodNationalID:
		return normalizeNationalID(credential)
	case models.MethodOTP:
		return strings.TrimSpace(credential)
	}
	return credential
}
