package state

import "encoding/binary"

var (
	balancePrefix           = []byte("balance/")
	tippingPlatformKey      = []byte("tipping/platform")
	tippingCreatorPrefix    = []byte("tipping/creator/")
	tippingCreatorCount     = []byte("tipping/creator-count")
	tippingCreatorAtPrefix  = []byte("tipping/creator-at/")
	tippingCreatorPosPrefix = []byte("tipping/creator-pos/")
	tippingAgentKeyPrefix   = []byte("tipping/agent/")
)

func tippingCreatorKey(handle string) []byte {
	return append(append([]byte(nil), tippingCreatorPrefix...), handle...)
}

func tippingAgentKey(owner [20]byte) []byte {
	return append(append([]byte(nil), tippingAgentKeyPrefix...), owner[:]...)
}

func tippingCreatorAtKey(pos uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), tippingCreatorAtPrefix...), pos)
}

func tippingCreatorPosKey(handle string) []byte {
	return append(append([]byte(nil), tippingCreatorPosPrefix...), handle...)
}
