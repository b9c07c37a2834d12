// Package cryptofake is a deterministic stand-in for the Crypto
// collaborator, used by consensus package tests and by
// cmd/tcnode's in-process demo network. It performs no real
// cryptography: "signing" just stamps the message with the configured
// public key, since signature verification itself is explicitly a
// non-goal delegated upstream of the engine.
package cryptofake

import "github.com/autonity/tendercore/message"

// Crypto is a fake message.Crypto bound to a single fixed public key.
type Crypto struct {
	PubKey message.PubKey
}

// New returns a Crypto that signs as pk.
func New(pk message.PubKey) *Crypto {
	return &Crypto{PubKey: pk}
}

func (c *Crypto) GetPubKey() message.PubKey { return c.PubKey }

func (c *Crypto) SignProposal(round message.Round, block message.Block) (message.ProposeBlockRequest, error) {
	return message.ProposeBlockRequest{Round: round, Block: block}, nil
}

func (c *Crypto) SignPrevote(height message.Height, round message.Round, hash message.BlockHash) (message.PrevoteMessage, error) {
	return message.PrevoteMessage{Height: height, Round: round, PubKey: c.PubKey, Hash: hash}, nil
}

func (c *Crypto) SignPrecommit(height message.Height, round message.Round, hash message.BlockHash) (message.PrecommitMessage, error) {
	return message.PrecommitMessage{Height: height, Round: round, PubKey: c.PubKey, Hash: hash}, nil
}

var _ message.Crypto = (*Crypto)(nil)
