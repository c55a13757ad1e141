package whatsmeowdrv

import (
	"encoding/base64"
	"encoding/json"

	"github.com/jrsteele09/go-link-server/credstore"
	"github.com/jrsteele09/go-link-server/protocol"
)

// credsSnapshot is the JSON shape of the primary credential file. The full
// key material lives in the sqlite device store inside the same directory;
// the snapshot carries the identity needed to reopen it.
type credsSnapshot struct {
	JID            string `json:"jid"`
	RegistrationID uint32 `json:"registrationId"`
	NoiseKeyPub    string `json:"noiseKeyPub,omitempty"`
	IdentityKeyPub string `json:"identityKeyPub,omitempty"`
	AdvSecret      string `json:"advSecret,omitempty"`
	Platform       string `json:"platform,omitempty"`
	PushName       string `json:"pushName,omitempty"`
}

// snapshotCredentials exports the device's current credential state as a
// credential-update event. Emitted on pairing success and on every
// connection open, so repeated snapshots simply overwrite the file.
func (c *client) snapshotCredentials() {
	device := c.wa.Store
	if device == nil || device.ID == nil {
		return
	}

	snapshot := credsSnapshot{
		JID:            device.ID.String(),
		RegistrationID: device.RegistrationID,
		Platform:       device.Platform,
		PushName:       device.PushName,
	}
	if device.NoiseKey != nil {
		snapshot.NoiseKeyPub = base64.StdEncoding.EncodeToString(device.NoiseKey.Pub[:])
	}
	if device.IdentityKey != nil {
		snapshot.IdentityKeyPub = base64.StdEncoding.EncodeToString(device.IdentityKey.Pub[:])
	}
	if len(device.AdvSecretKey) > 0 {
		snapshot.AdvSecret = base64.StdEncoding.EncodeToString(device.AdvSecretKey)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal credential snapshot")
		return
	}
	c.emit(protocol.CredentialsEvent{Name: credstore.CredsFile, Data: data})
}
