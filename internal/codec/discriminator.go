// Package codec decodes bonding-curve program instructions and events.
//
// Every payload starts with an 8-byte discriminator. Instruction
// discriminators are sha256("global:<name>")[:8] and event discriminators
// are sha256("event:<Name>")[:8]. Events emitted through a self-CPI carry an
// additional 8-byte tag in front of the event discriminator.
package codec

import (
	"crypto/sha256"
	"encoding/hex"
)

// DiscriminatorSize is the length of every discriminator prefix.
const DiscriminatorSize = 8

// Discriminator identifies an instruction or event layout.
type Discriminator [DiscriminatorSize]byte

// String returns the hex form of the discriminator.
func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

// EventInstructionTag prefixes event payloads emitted as inner instructions.
var EventInstructionTag = Discriminator{228, 69, 165, 46, 81, 203, 154, 29}

// InstructionDiscriminator returns the discriminator of the named instruction.
func InstructionDiscriminator(name string) Discriminator {
	return hashDiscriminator("global:" + name)
}

// EventDiscriminator returns the discriminator of the named event.
func EventDiscriminator(name string) Discriminator {
	return hashDiscriminator("event:" + name)
}

func hashDiscriminator(preimage string) Discriminator {
	sum := sha256.Sum256([]byte(preimage))
	var d Discriminator
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// PeekDiscriminator returns the leading discriminator of data.
func PeekDiscriminator(data []byte) (Discriminator, bool) {
	var d Discriminator
	if len(data) < DiscriminatorSize {
		return d, false
	}
	copy(d[:], data[:DiscriminatorSize])
	return d, true
}
