package domain

// Header flag bits of a Name Service packet (RFC 1002 §4.2.1.1).
const (
	FlagResponse           uint16 = 0x8000
	FlagOpcodeMask         uint16 = 0x7800
	FlagAuthoritative      uint16 = 0x0400
	FlagTruncated          uint16 = 0x0200
	FlagRecursionDesired   uint16 = 0x0100
	FlagRecursionAvailable uint16 = 0x0080
	FlagBroadcast          uint16 = 0x0010
	FlagRCodeMask          uint16 = 0x000F
)

// QuestionType values used by the Name Service.
type QuestionType uint16

const (
	QuestionTypeNB     QuestionType = 0x0020
	QuestionTypeNBSTAT QuestionType = 0x0021
)

// String returns the RFC mnemonic for the question type.
func (t QuestionType) String() string {
	switch t {
	case QuestionTypeNB:
		return "NB"
	case QuestionTypeNBSTAT:
		return "NBSTAT"
	default:
		return "UNKNOWN"
	}
}

// QuestionClassIN is the only class NBT uses.
const QuestionClassIN uint16 = 0x0001

// NAME_FLAGS bits of a node status name table entry (RFC 1002 §4.2.18).
const (
	NameFlagGroup      uint16 = 0x8000
	NameFlagNodeMask   uint16 = 0x6000
	NameFlagDeregister uint16 = 0x1000
	NameFlagConflict   uint16 = 0x0800
	NameFlagActive     uint16 = 0x0400
	NameFlagPermanent  uint16 = 0x0200
)

// NodeType is the owner node type encoded in NAME_FLAGS.
type NodeType uint8

const (
	NodeTypeB NodeType = iota
	NodeTypeP
	NodeTypeM
	NodeTypeH
)

// String returns the single letter node type.
func (t NodeType) String() string {
	switch t {
	case NodeTypeB:
		return "B"
	case NodeTypeP:
		return "P"
	case NodeTypeM:
		return "M"
	case NodeTypeH:
		return "H"
	default:
		return "?"
	}
}
