package domain

// NameRecordSize is the wire size of one name table entry.
const NameRecordSize = NameSize + 2

// NameRecord is one entry of a node status name table.
type NameRecord struct {
	Name  NetBIOSName
	Flags uint16
}

// Suffix returns the service byte of the name.
func (r NameRecord) Suffix() byte {
	return r.Name.Suffix()
}

// IsGroup reports whether the name is shared by several nodes.
func (r NameRecord) IsGroup() bool {
	return r.Flags&NameFlagGroup != 0
}

// IsUnique reports whether the name is owned by a single node.
func (r NameRecord) IsUnique() bool {
	return !r.IsGroup()
}

// NodeType returns the owner node type bits.
func (r NameRecord) NodeType() NodeType {
	return NodeType((r.Flags & NameFlagNodeMask) >> 13)
}

func (r NameRecord) IsActive() bool     { return r.Flags&NameFlagActive != 0 }
func (r NameRecord) IsConflict() bool   { return r.Flags&NameFlagConflict != 0 }
func (r NameRecord) IsDeregister() bool { return r.Flags&NameFlagDeregister != 0 }
func (r NameRecord) IsPermanent() bool  { return r.Flags&NameFlagPermanent != 0 }

// Service looks the record up in the service catalog.
func (r NameRecord) Service() string {
	return DescribeService(r.Suffix(), r.IsUnique(), r.Name.Name())
}
