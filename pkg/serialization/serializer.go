// Package serialization turns flow version snapshots into bytes for the
// persistence adapters: a codec, optional compression and optional AES-GCM
// encryption, applied in that order.
// PRINCIPLES:
// - KISS: Simple interface with multiple codec implementations
// - DRY: Reusable across all snapshot savers
package serialization

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec interface for serialization
// PRINCIPLES:
// - ISP: Simple interface with ≤5 methods
// - SRP: Single responsibility for serialization
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
	Name() string
}

// CompressionType represents compression algorithms
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
)

// Codec names accepted by CodecByName.
const (
	CodecJSON    = "json"
	CodecMsgPack = "msgpack"
)

// ErrInvalidKey is returned when the encryption key is not an AES-256 key.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes")

// SerializationConfig holds serialization settings
type SerializationConfig struct {
	Codec       Codec
	Compression CompressionType
	EncryptKey  []byte // AES-256 key (32 bytes)
}

// Serializer provides the complete encode, compress, encrypt pipeline.
// It is safe for concurrent use.
type Serializer struct {
	config SerializationConfig

	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
}

// NewSerializer creates a new serializer with configuration
func NewSerializer(config SerializationConfig) *Serializer {
	if config.Codec == nil {
		config.Codec = NewMsgPackCodec()
	}
	if config.Compression == "" {
		config.Compression = CompressionNone
	}
	return &Serializer{config: config}
}

// FromNames builds a serializer from configuration strings, as read from
// the config file. An empty key disables encryption.
func FromNames(codec, compression string, key []byte) (*Serializer, error) {
	c, err := CodecByName(codec)
	if err != nil {
		return nil, err
	}
	comp, err := ParseCompression(compression)
	if err != nil {
		return nil, err
	}
	if len(key) > 0 && len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return NewSerializer(SerializationConfig{Codec: c, Compression: comp, EncryptKey: key}), nil
}

// Name describes the pipeline, e.g. "msgpack+zstd".
func (s *Serializer) Name() string {
	name := s.config.Codec.Name()
	if s.config.Compression != CompressionNone {
		name += "+" + string(s.config.Compression)
	}
	if len(s.config.EncryptKey) > 0 {
		name += "+aes"
	}
	return name
}

// Serialize encodes, compresses, and encrypts data
func (s *Serializer) Serialize(v interface{}) ([]byte, error) {
	data, err := s.config.Codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("codec encoding failed: %w", err)
	}

	data, err = s.compress(data)
	if err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}

	if len(s.config.EncryptKey) > 0 {
		data, err = s.encrypt(data)
		if err != nil {
			return nil, fmt.Errorf("encryption failed: %w", err)
		}
	}

	return data, nil
}

// Deserialize decrypts, decompresses, and decodes data
func (s *Serializer) Deserialize(data []byte, v interface{}) error {
	var err error

	if len(s.config.EncryptKey) > 0 {
		data, err = s.decrypt(data)
		if err != nil {
			return fmt.Errorf("decryption failed: %w", err)
		}
	}

	data, err = s.decompress(data)
	if err != nil {
		return fmt.Errorf("decompression failed: %w", err)
	}

	if err := s.config.Codec.Decode(data, v); err != nil {
		return fmt.Errorf("codec decoding failed: %w", err)
	}

	return nil
}

func (s *Serializer) compress(data []byte) ([]byte, error) {
	switch s.config.Compression {
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		if err := s.initZstd(); err != nil {
			return nil, err
		}
		return s.zstdEnc.EncodeAll(data, nil), nil
	default:
		return data, nil
	}
}

func (s *Serializer) decompress(data []byte) ([]byte, error) {
	switch s.config.Compression {
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		if err := s.initZstd(); err != nil {
			return nil, err
		}
		return s.zstdDec.DecodeAll(data, nil)
	default:
		return data, nil
	}
}

// initZstd builds the shared zstd coders once; EncodeAll and DecodeAll are
// safe for concurrent use.
func (s *Serializer) initZstd() error {
	s.zstdOnce.Do(func() {
		s.zstdEnc, s.zstdErr = zstd.NewWriter(nil)
		if s.zstdErr != nil {
			return
		}
		s.zstdDec, s.zstdErr = zstd.NewReader(nil)
	})
	return s.zstdErr
}

func (s *Serializer) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.config.EncryptKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// encrypt seals data with AES-GCM; the random nonce is prepended.
func (s *Serializer) encrypt(data []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

func (s *Serializer) decrypt(data []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("invalid ciphertext size")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// JSONCodec implements JSON serialization
type JSONCodec struct{}

func (c *JSONCodec) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Name() string {
	return CodecJSON
}

// MsgPackCodec implements MessagePack serialization
type MsgPackCodec struct{}

func (c *MsgPackCodec) Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (c *MsgPackCodec) Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

func (c *MsgPackCodec) Name() string {
	return CodecMsgPack
}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() Codec {
	return &JSONCodec{}
}

// NewMsgPackCodec creates a new MessagePack codec
func NewMsgPackCodec() Codec {
	return &MsgPackCodec{}
}

// CodecByName resolves a codec from its configuration name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case CodecJSON:
		return NewJSONCodec(), nil
	case CodecMsgPack, "":
		return NewMsgPackCodec(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// ParseCompression resolves a compression algorithm from its configuration name.
func ParseCompression(name string) (CompressionType, error) {
	switch CompressionType(name) {
	case CompressionNone, "":
		return CompressionNone, nil
	case CompressionGzip:
		return CompressionGzip, nil
	case CompressionZstd:
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q", name)
	}
}

// DefaultSerializer creates a serializer with sensible defaults
func DefaultSerializer() *Serializer {
	return NewSerializer(SerializationConfig{
		Codec:       NewMsgPackCodec(),
		Compression: CompressionZstd,
	})
}
