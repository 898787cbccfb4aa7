package methods

import (
	"crypto/subtle"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"lifeline/internal/emergency/models"
)

// zeroDigest stands in for a missing digest so the comparison still runs.
var zeroDigest = Digest("")

var dummyHashes sync.Map // cost -> []byte

func dummyHash(cost int) []byte {
	if h, ok := dummyHashes.Load(cost); ok {
		return h.([]byte)
	}
	h, err := bcrypt.GenerateFromPassword([]byte("lifeline-dummy-credential"), cost)
	if err != nil {
		h, _ = bcrypt.GenerateFromPassword([]byte("lifeline-dummy-credential"), bcrypt.DefaultCost)
	}
	dummyHashes.Store(cost, h)
	return h
}

// Compare reports whether credential matches m. m may be nil or of another
// kind; the comparison still does the work of a real one for kind so
// callers cannot tell a missing method from a wrong secret by timing.
// It does not check enablement or expiry.
func (r *Registry) Compare(kind models.MethodKind, m models.AccessMethod, credential string) bool {
	credential = NormalizeCredential(kind, credential)
	present := m != nil && m.Kind() == kind

	switch kind {
	case models.MethodQRCode, models.MethodNFC, models.MethodBiometric:
		stored := zeroDigest
		if present {
			stored = storedDigest(m)
		}
		got := Digest(credential)
		ok := subtle.ConstantTimeCompare([]byte(got), []byte(stored)) == 1
		return ok && present && credential != ""

	case models.MethodNationalID, models.MethodOTP:
		hash := dummyHash(r.builder.bcryptCost)
		if present {
			if h := storedHash(m); h != "" {
				hash = []byte(h)
			}
		}
		ok := bcrypt.CompareHashAndPassword(hash, []byte(credential)) == nil
		return ok && present && credential != ""
	}
	return false
}

func storedDigest(m models.AccessMethod) string {
	switch v := m.(type) {
	case models.QRCodeMethod:
		return v.TokenDigest
	case models.NFCMethod:
		return v.TagDigest
	case models.BiometricMethod:
		return v.TemplateDigest
	}
	return zeroDigest
}

func storedHash(m models.AccessMethod) string {
	switch v := m.(type) {
	case models.NationalIDMethod:
		return v.NumberHash
	case models.OTPFallbackMethod:
		return v.CodeHash
	}
	return ""
}

// IsRetired reports whether credential matches a QR token that m has since
// replaced. Only QR codes keep retired digests.
func (r *Registry) IsRetired(kind models.MethodKind, m models.AccessMethod, credential string) bool {
	qr, ok := m.(models.QRCodeMethod)
	if !ok || kind != models.MethodQRCode {
		return false
	}
	credential = NormalizeCredential(kind, credential)
	if credential == "" {
		return false
	}
	got := []byte(Digest(credential))
	matched := false
	for _, d := range qr.RetiredDigests {
		if subtle.ConstantTimeCompare(got, []byte(d)) == 1 {
			matched = true
		}
	}
	return matched
}
