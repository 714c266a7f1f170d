package gamenet

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/flynn/noise"
	"github.com/pkg/errors"
)

// encryptionConnector wraps another Connector and encrypts every datagram
// with a Noise XX session negotiated during Open. The reliability core
// never sees it, above and below the extension only opaque byte buffers
// move. Each datagram is prefixed with its 8 byte nonce; replayed nonces
// are rejected.
type encryptionConnector struct {
	extension  Connector
	initiator  bool
	handshake  *noise.HandshakeState
	encrypter  *noise.CipherState
	decrypter  *noise.CipherState
	writeNonce uint64
	usedNonces map[uint64]struct{}
}

const nonceSize = 8

func newEncryptionConnector(extension Connector, initiator bool) *encryptionConnector {
	return &encryptionConnector{
		extension:  extension,
		initiator:  initiator,
		usedNonces: make(map[uint64]struct{}),
	}
}

func (enc *encryptionConnector) Open() error {
	if err := enc.extension.Open(); err != nil {
		return err
	}
	return enc.performHandshake()
}

func (enc *encryptionConnector) Close() error {
	return enc.extension.Close()
}

func (enc *encryptionConnector) Write(buffer []byte) (StatusCode, int, error) {
	if enc.encrypter == nil {
		return Fail, 0, errors.New("connection not secured")
	}
	encrypted := enc.encrypter.Cipher().Encrypt(nil, enc.writeNonce, nil, buffer)
	out := make([]byte, nonceSize+len(encrypted))
	binary.BigEndian.PutUint64(out, enc.writeNonce)
	copy(out[nonceSize:], encrypted)
	enc.writeNonce++
	return enc.extension.Write(out)
}

func (enc *encryptionConnector) Read(buffer []byte) (StatusCode, int, error) {
	if enc.decrypter == nil {
		return Fail, 0, errors.New("connection not secured")
	}
	encrypted := make([]byte, len(buffer)+nonceSize+16)
	status, n, err := enc.extension.Read(encrypted)
	if status != Success || err != nil {
		return status, 0, err
	}
	if n < nonceSize {
		return Fail, 0, errors.Wrapf(ErrMalformedHeader, "%d bytes", n)
	}
	nonce := binary.BigEndian.Uint64(encrypted[:nonceSize])
	if !enc.syncNonce(nonce) {
		return InvalidNonce, 0, nil
	}
	decrypted, err := enc.decrypter.Cipher().Decrypt(nil, nonce, nil, encrypted[nonceSize:n])
	if err != nil {
		return Fail, 0, errors.Wrap(err, "decrypting datagram")
	}
	copy(buffer, decrypted)
	return Success, len(decrypted), nil
}

func (enc *encryptionConnector) SetReadTimeout(t time.Duration) {
	enc.extension.SetReadTimeout(t)
}

// syncNonce records the nonce and reports whether it was fresh.
func (enc *encryptionConnector) syncNonce(nonce uint64) bool {
	if _, used := enc.usedNonces[nonce]; used {
		return false
	}
	enc.usedNonces[nonce] = struct{}{}
	return true
}

// performHandshake runs the three Noise XX messages over the underlying
// connector. The connection initiator is also the handshake initiator.
func (enc *encryptionConnector) performHandshake() error {
	var err error
	enc.handshake, err = createHandshakeState(enc.initiator)
	if err != nil {
		return err
	}
	if enc.initiator {
		if _, _, err = enc.writeHandshakeMessage(); err != nil {
			return err
		}
		if _, _, err = enc.readHandshakeMessage(); err != nil {
			return err
		}
		enc.encrypter, enc.decrypter, err = enc.writeHandshakeMessage()
		return err
	}
	if _, _, err = enc.readHandshakeMessage(); err != nil {
		return err
	}
	if _, _, err = enc.writeHandshakeMessage(); err != nil {
		return err
	}
	enc.decrypter, enc.encrypter, err = enc.readHandshakeMessage()
	return err
}

func (enc *encryptionConnector) writeHandshakeMessage() (*noise.CipherState, *noise.CipherState, error) {
	msg, cs0, cs1, err := enc.handshake.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "writing handshake message")
	}
	if _, _, err = enc.extension.Write(msg); err != nil {
		return nil, nil, err
	}
	return cs0, cs1, nil
}

func (enc *encryptionConnector) readHandshakeMessage() (*noise.CipherState, *noise.CipherState, error) {
	buffer := make([]byte, defaultMTU)
	status, n, err := enc.extension.Read(buffer)
	if err != nil {
		return nil, nil, err
	}
	if status != Success {
		return nil, nil, errors.Errorf("handshake read failed with status %d", status)
	}
	_, cs0, cs1, err := enc.handshake.ReadMessage(nil, buffer[:n])
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading handshake message")
	}
	return cs0, cs1, nil
}

func createHandshakeState(initiator bool) (*noise.HandshakeState, error) {
	cipherSuite := noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2b)
	key, err := cipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generating keypair")
	}
	handshake, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		StaticKeypair: key,
	})
	return handshake, errors.Wrap(err, "creating handshake state")
}
