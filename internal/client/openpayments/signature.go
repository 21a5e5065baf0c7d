package openpayments

import (
	"crypto/ed25519"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const signatureLabel = "sig1"

// Signer produces HTTP message signatures with an ed25519 client key.
type Signer struct {
	key   ed25519.PrivateKey
	keyID string
	now   func() time.Time
}

// NewSigner returns a Signer for key identified by keyID.
func NewSigner(key ed25519.PrivateKey, keyID string) *Signer {
	return &Signer{key: key, keyID: keyID, now: time.Now}
}

// LoadSigner reads a PKCS#8 ed25519 key from path.
func LoadSigner(path, keyID string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, err
	}
	return NewSigner(key, keyID), nil
}

// ParsePrivateKey accepts a PEM block or a base64-encoded PEM block holding a PKCS#8 ed25519 key.
func ParsePrivateKey(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, errors.New("private key is neither PEM nor base64-encoded PEM")
		}
		block, _ = pem.Decode(decoded)
		if block == nil {
			return nil, errors.New("private key is neither PEM nor base64-encoded PEM")
		}
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want ed25519", parsed)
	}
	return key, nil
}

// ContentDigest returns the Content-Digest header value of body.
func ContentDigest(body []byte) string {
	sum := sha512.Sum512(body)
	return "sha-512=:" + base64.StdEncoding.EncodeToString(sum[:]) + ":"
}

// Sign adds Content-Digest, Signature-Input and Signature to h for a request.
// h must already carry Authorization and Content-Type when they are sent.
func (s *Signer) Sign(method, targetURI string, h http.Header, body []byte) {
	components := []string{"@method", "@target-uri"}
	if h.Get("Authorization") != "" {
		components = append(components, "authorization")
	}
	if len(body) > 0 {
		h.Set("Content-Digest", ContentDigest(body))
		h.Set("Content-Length", strconv.Itoa(len(body)))
		components = append(components, "content-digest", "content-length", "content-type")
	}
	params := signatureParams(components, s.keyID, s.now().Unix())
	base := signatureBase(method, targetURI, h, components, params)
	sig := ed25519.Sign(s.key, []byte(base))
	h.Set("Signature-Input", signatureLabel+"="+params)
	h.Set("Signature", signatureLabel+"=:"+base64.StdEncoding.EncodeToString(sig)+":")
}

// PublicKey returns the verification key matching the signer.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func signatureParams(components []string, keyID string, created int64) string {
	quoted := make([]string, len(components))
	for i, c := range components {
		quoted[i] = strconv.Quote(c)
	}
	return fmt.Sprintf(`(%s);keyid=%s;created=%d`, strings.Join(quoted, " "), strconv.Quote(keyID), created)
}

func signatureBase(method, targetURI string, h http.Header, components []string, params string) string {
	var b strings.Builder
	for _, c := range components {
		var v string
		switch c {
		case "@method":
			v = strings.ToUpper(method)
		case "@target-uri":
			v = targetURI
		default:
			v = h.Get(c)
		}
		fmt.Fprintf(&b, "%q: %s\n", c, v)
	}
	fmt.Fprintf(&b, "%q: %s", "@signature-params", params)
	return b.String()
}

// VerifyRequest checks the signature headers of r against key. targetURI is the absolute request URI.
func VerifyRequest(r *http.Request, targetURI string, body []byte, key ed25519.PublicKey) error {
	input := r.Header.Get("Signature-Input")
	signature := r.Header.Get("Signature")
	if input == "" || signature == "" {
		return errors.New("missing signature headers")
	}
	params, ok := strings.CutPrefix(input, signatureLabel+"=")
	if !ok {
		return errors.New("unexpected signature label")
	}
	encoded, ok := strings.CutPrefix(signature, signatureLabel+"=:")
	if !ok || !strings.HasSuffix(encoded, ":") {
		return errors.New("malformed signature")
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSuffix(encoded, ":"))
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	end := strings.Index(params, ")")
	if !strings.HasPrefix(params, "(") || end < 0 {
		return errors.New("malformed signature input")
	}
	var components []string
	for _, c := range strings.Fields(params[1:end]) {
		unquoted, err := strconv.Unquote(c)
		if err != nil {
			return fmt.Errorf("malformed component %s", c)
		}
		components = append(components, unquoted)
	}
	if len(body) > 0 && r.Header.Get("Content-Digest") != ContentDigest(body) {
		return errors.New("content digest mismatch")
	}
	base := signatureBase(r.Method, targetURI, r.Header, components, params)
	if key == nil {
		return nil
	}
	if !ed25519.Verify(key, []byte(base), sig) {
		return errors.New("signature verification failed")
	}
	return nil
}
