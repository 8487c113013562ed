package domain

const (
	// HeaderSize is the fixed Name Service header: id, flags and four counts.
	HeaderSize = 12

	// QuestionNameSize is the encoded length of a 16-byte name with an empty scope.
	QuestionNameSize = 34
)

// ResponseHeader holds the fixed fields that precede the name table of a
// node status response.
type ResponseHeader struct {
	TransactionID         uint16
	Flags                 uint16
	QuestionCount         uint16
	AnswerCount           uint16
	NameServiceCount      uint16
	AdditionalRecordCount uint16

	// QuestionName is the first QuestionNameSize bytes of the echoed RR_NAME.
	QuestionName [QuestionNameSize]byte
	// QuestionScope holds any scope labels that followed the encoded name.
	QuestionScope string
	// QueriedName is QuestionName after first-level decoding; zero when the
	// echoed name could not be decoded.
	QueriedName NetBIOSName

	QuestionType  QuestionType
	QuestionClass uint16
	TTL           uint32
	RDataLength   uint16
	NumberOfNames uint8
}

// IsResponse reports whether the R bit is set.
func (h ResponseHeader) IsResponse() bool {
	return h.Flags&FlagResponse != 0
}

// Opcode returns the 4-bit opcode.
func (h ResponseHeader) Opcode() uint8 {
	return uint8((h.Flags & FlagOpcodeMask) >> 11)
}

// RCode returns the 4-bit response code.
func (h ResponseHeader) RCode() uint8 {
	return uint8(h.Flags & FlagRCodeMask)
}
