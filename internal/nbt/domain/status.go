package domain

import "net"

// AdapterStatusSize is the wire size of the statistics block that follows the name table.
const AdapterStatusSize = 50

// AdapterStatus is the legacy NetBIOS adapter statistics block of a node
// status response. Most counters are zero on modern stacks.
type AdapterStatus struct {
	UnitID               [6]byte
	VersionMajor         uint8
	VersionMinor         uint8
	Duration             uint16
	FRMRsReceived        uint16
	FRMRsTransmitted     uint16
	IFrameReceiveErrors  uint16
	TransmitAborts       uint16
	Transmitted          uint32
	Received             uint32
	IFrameTransmitErrors uint16
	NoReceiveBuffer      uint16
	T1Timeouts           uint16
	TiTimeouts           uint16
	FreeNCBs             uint16
	NCBs                 uint16
	MaxNCBs              uint16
	NoTransmitBuffers    uint16
	MaxDatagram          uint16
	PendingSessions      uint16
	MaxSessions          uint16
	PacketSessions       uint16
}

// MAC returns the unit id as a hardware address.
func (s AdapterStatus) MAC() net.HardwareAddr {
	mac := make(net.HardwareAddr, len(s.UnitID))
	copy(mac, s.UnitID[:])
	return mac
}
