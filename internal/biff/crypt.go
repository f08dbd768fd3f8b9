package biff

import (
	"bytes"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrNotEncrypted reports a stream without a FILEPASS record.
	ErrNotEncrypted = errors.New("workbook stream is not encrypted")
	// ErrUnsupportedEncryption reports XOR obfuscation or an unknown
	// FILEPASS version.
	ErrUnsupportedEncryption = errors.New("unsupported BIFF encryption")
	// ErrWrongPassword reports a password that fails the FILEPASS verifier.
	ErrWrongPassword = errors.New("password does not match encryption verifier")
)

const (
	// The keystream is re-keyed for every block of this many stream bytes.
	blockSize = 1024

	encryptionRC4 = 0x0001
	algRC4        = 0x6801
	saltSize      = 16
	rc4BodySize   = 6 + 3*saltSize
)

// Records whose bodies are never encrypted. BOUNDSHEET keeps only its
// stream position in the clear and is handled separately.
var plaintextRecords = map[uint16]bool{
	RecordBOF:      true,
	RecordFilePass: true,
	0x0194:         true, // UsrExcl
	0x0195:         true, // FileLock
	0x00E1:         true, // InterfaceHdr
	0x0196:         true, // RRDInfo
	0x0138:         true, // RRDHead
}

// keyer derives the RC4 key for one keystream block.
type keyer interface {
	key(block uint32) []byte
}

// rc4Key is the MD5-based scheme of FILEPASS version 1.1.
type rc4Key struct {
	truncated [5]byte
}

func newRC4Key(password string, salt []byte) (rc4Key, error) {
	pw, err := utf16le(password)
	if err != nil {
		return rc4Key{}, err
	}
	h0 := md5.Sum(pw)
	buf := make([]byte, 0, 16*(5+len(salt)))
	for range 16 {
		buf = append(buf, h0[:5]...)
		buf = append(buf, salt...)
	}
	h1 := md5.Sum(buf)
	var k rc4Key
	copy(k.truncated[:], h1[:5])
	return k, nil
}

func (k rc4Key) key(block uint32) []byte {
	h := md5.Sum(binary.LittleEndian.AppendUint32(k.truncated[:], block))
	return h[:]
}

// cryptoAPIKey is the SHA-1 scheme of FILEPASS versions 2.2 through 4.2.
type cryptoAPIKey struct {
	h0   [sha1.Size]byte
	size int
}

func newCryptoAPIKey(password string, salt []byte, keyBits uint32) (cryptoAPIKey, error) {
	pw, err := utf16le(password)
	if err != nil {
		return cryptoAPIKey{}, err
	}
	if keyBits == 0 {
		keyBits = 40
	}
	if keyBits%8 != 0 || keyBits < 40 || keyBits > 128 {
		return cryptoAPIKey{}, fmt.Errorf("key size %d bits: %w", keyBits, ErrUnsupportedEncryption)
	}
	return cryptoAPIKey{
		h0:   sha1.Sum(append(append([]byte(nil), salt...), pw...)),
		size: int(keyBits / 8),
	}, nil
}

func (k cryptoAPIKey) key(block uint32) []byte {
	h := sha1.Sum(binary.LittleEndian.AppendUint32(k.h0[:], block))
	key := h[:k.size]
	if k.size == 5 {
		// 40-bit keys are zero padded to 128 bits.
		key = append(key[:5:5], make([]byte, 11)...)
	}
	return key
}

// Decrypt returns a copy of stream with every encrypted record body
// restored. Record headers and offsets are unchanged.
func Decrypt(stream []byte, password string) ([]byte, error) {
	rec, ok := filePass(stream)
	if !ok {
		return nil, ErrNotEncrypted
	}
	k, err := parseFilePass(rec.Body(stream), password)
	if err != nil {
		return nil, err
	}
	out := bytes.Clone(stream)
	if err := applyKeystream(out, k); err != nil {
		return nil, err
	}
	return out, nil
}

// parseFilePass reads the FILEPASS body and checks password against its
// verifier.
func parseFilePass(body []byte, password string) (keyer, error) {
	if len(body) < 6 {
		return nil, fmt.Errorf("FILEPASS body of %d bytes: %w", len(body), ErrTruncated)
	}
	le := binary.LittleEndian
	if kind := le.Uint16(body); kind != encryptionRC4 {
		return nil, fmt.Errorf("encryption type %d: %w", kind, ErrUnsupportedEncryption)
	}
	major, minor := le.Uint16(body[2:]), le.Uint16(body[4:])
	switch {
	case major == 1 && minor == 1:
		if len(body) < rc4BodySize {
			return nil, fmt.Errorf("RC4 FILEPASS: %w", ErrTruncated)
		}
		salt := body[6:22]
		k, err := newRC4Key(password, salt)
		if err != nil {
			return nil, err
		}
		if !verify(k, body[22:38], body[38:54], md5Digest) {
			return nil, ErrWrongPassword
		}
		return k, nil
	case minor == 2 && major >= 2 && major <= 4:
		return parseCryptoAPI(body[6:], password)
	default:
		return nil, fmt.Errorf("FILEPASS version %d.%d: %w", major, minor, ErrUnsupportedEncryption)
	}
}

func parseCryptoAPI(p []byte, password string) (keyer, error) {
	le := binary.LittleEndian
	if len(p) < 8 {
		return nil, fmt.Errorf("CryptoAPI FILEPASS: %w", ErrTruncated)
	}
	headerLen := int(le.Uint32(p[4:]))
	if headerLen < 32 || len(p) < 8+headerLen {
		return nil, fmt.Errorf("CryptoAPI encryption header: %w", ErrTruncated)
	}
	header := p[8 : 8+headerLen]
	if alg := le.Uint32(header[8:]); alg != 0 && alg != algRC4 {
		return nil, fmt.Errorf("algorithm 0x%04X: %w", alg, ErrUnsupportedEncryption)
	}
	keyBits := le.Uint32(header[16:])

	v := p[8+headerLen:]
	if len(v) < 4+saltSize+16+4+sha1.Size {
		return nil, fmt.Errorf("CryptoAPI verifier: %w", ErrTruncated)
	}
	if n := le.Uint32(v); n != saltSize {
		return nil, fmt.Errorf("salt size %d: %w", n, ErrUnsupportedEncryption)
	}
	salt := v[4:20]
	k, err := newCryptoAPIKey(password, salt, keyBits)
	if err != nil {
		return nil, err
	}
	if !verify(k, v[20:36], v[40:40+sha1.Size], sha1Digest) {
		return nil, ErrWrongPassword
	}
	return k, nil
}

func md5Digest(b []byte) []byte {
	h := md5.Sum(b)
	return h[:]
}

func sha1Digest(b []byte) []byte {
	h := sha1.Sum(b)
	return h[:]
}

// verify decrypts the verifier and its hash with one block-zero cipher and
// compares the recomputed digest.
func verify(k keyer, encVerifier, encHash []byte, digest func([]byte) []byte) bool {
	c, err := rc4.NewCipher(k.key(0))
	if err != nil {
		return false
	}
	verifier := make([]byte, len(encVerifier))
	hash := make([]byte, len(encHash))
	c.XORKeyStream(verifier, encVerifier)
	c.XORKeyStream(hash, encHash)
	return bytes.Equal(digest(verifier), hash)
}

// applyKeystream XORs every encrypted body in place. The keystream position
// is the absolute stream offset, so it advances across headers and plaintext
// bodies without touching them.
func applyKeystream(stream []byte, k keyer) error {
	recs, err := Records(stream)
	if err != nil {
		return err
	}
	ks := &keystream{keys: k}
	for _, rec := range recs {
		if plaintextRecords[rec.ID] {
			continue
		}
		start := rec.Start()
		if rec.ID == RecordBoundSheet {
			start = min(start+4, rec.End())
		}
		if err := ks.xor(stream[start:rec.End()], start); err != nil {
			return err
		}
	}
	return nil
}

type keystream struct {
	keys   keyer
	cipher *rc4.Cipher
	block  uint32
	pos    int
}

func (ks *keystream) xor(buf []byte, pos int) error {
	for len(buf) > 0 {
		block := uint32(pos / blockSize)
		if ks.cipher == nil || block != ks.block || pos < ks.pos {
			c, err := rc4.NewCipher(ks.keys.key(block))
			if err != nil {
				return err
			}
			ks.cipher, ks.block, ks.pos = c, block, int(block)*blockSize
		}
		if skip := pos - ks.pos; skip > 0 {
			discard := make([]byte, skip)
			ks.cipher.XORKeyStream(discard, discard)
		}
		n := min(len(buf), int(block+1)*blockSize-pos)
		ks.cipher.XORKeyStream(buf[:n], buf[:n])
		buf = buf[n:]
		pos += n
		ks.pos = pos
	}
	return nil
}

// Encrypt inserts an RC4 FILEPASS record after the leading BOF and encrypts
// the stream with password. BOUNDSHEET positions are rebased past the new
// record; other absolute offsets are not rewritten.
func Encrypt(stream []byte, password string) ([]byte, error) {
	recs, err := Records(stream)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 || recs[0].ID != RecordBOF {
		return nil, errors.New("workbook stream does not start with BOF")
	}
	if Encrypted(stream) {
		return nil, errors.New("workbook stream is already encrypted")
	}

	salt := make([]byte, saltSize)
	verifier := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(verifier); err != nil {
		return nil, err
	}
	k, err := newRC4Key(password, salt)
	if err != nil {
		return nil, err
	}
	c, err := rc4.NewCipher(k.key(0))
	if err != nil {
		return nil, err
	}
	sealed := append(append([]byte(nil), verifier...), md5Digest(verifier)...)
	c.XORKeyStream(sealed, sealed)

	le := binary.LittleEndian
	filepass := make([]byte, 0, headerSize+rc4BodySize)
	filepass = le.AppendUint16(filepass, RecordFilePass)
	filepass = le.AppendUint16(filepass, rc4BodySize)
	filepass = le.AppendUint16(filepass, encryptionRC4)
	filepass = le.AppendUint16(filepass, 1)
	filepass = le.AppendUint16(filepass, 1)
	filepass = append(filepass, salt...)
	filepass = append(filepass, sealed...)

	at := recs[0].End()
	out := make([]byte, 0, len(stream)+len(filepass))
	out = append(out, stream[:at]...)
	out = append(out, filepass...)
	out = append(out, stream[at:]...)

	shifted, err := Records(out)
	if err != nil {
		return nil, err
	}
	for _, rec := range shifted {
		if rec.ID == RecordBoundSheet && rec.Size >= 4 {
			body := rec.Body(out)
			le.PutUint32(body, le.Uint32(body)+uint32(len(filepass)))
		}
	}
	if err := applyKeystream(out, k); err != nil {
		return nil, err
	}
	return out, nil
}

func utf16le(s string) ([]byte, error) {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("encode password: %w", err)
	}
	return []byte(out), nil
}
