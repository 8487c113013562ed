package domain

import (
	"fmt"
	"strings"
)

// ServiceEntry maps a name suffix and uniqueness to a human readable service.
// Pattern, when set, must occur in the NetBIOS name for the entry to apply.
type ServiceEntry struct {
	Pattern     string
	Suffix      byte
	Unique      bool
	Description string
}

// services is consulted in order; specific patterns come before the generic
// entries that share their suffix.
var services = [...]ServiceEntry{
	{"__MSBROWSE__", 0x01, false, "Master Browser"},
	{"INet~Services", 0x1C, false, "IIS"},
	{"IS~", 0x00, true, "IIS"},
	{"", 0x00, true, "Workstation Service"},
	{"", 0x01, true, "Messenger Service"},
	{"", 0x03, true, "Messenger Service"},
	{"", 0x06, true, "RAS Server Service"},
	{"", 0x1F, true, "NetDDE Service"},
	{"", 0x20, true, "File Server Service"},
	{"", 0x21, true, "RAS Client Service"},
	{"", 0x22, true, "Microsoft Exchange Interchange(MSMail Connector)"},
	{"", 0x23, true, "Microsoft Exchange Store"},
	{"", 0x24, true, "Microsoft Exchange Directory"},
	{"", 0x30, true, "Modem Sharing Server Service"},
	{"", 0x31, true, "Modem Sharing Client Service"},
	{"", 0x43, true, "SMS Clients Remote Control"},
	{"", 0x44, true, "SMS Administrators Remote Control Tool"},
	{"", 0x45, true, "SMS Clients Remote Chat"},
	{"", 0x46, true, "SMS Clients Remote Transfer"},
	{"", 0x4C, true, "DEC Pathworks TCPIP service on Windows NT"},
	{"", 0x52, true, "DEC Pathworks TCPIP service on Windows NT"},
	{"", 0x87, true, "Microsoft Exchange MTA"},
	{"", 0x6A, true, "Microsoft Exchange IMC"},
	{"", 0xBE, true, "Network Monitor Agent"},
	{"", 0xBF, true, "Network Monitor Application"},
	{"", 0x03, true, "Messenger Service"},
	{"", 0x00, false, "Domain Name"},
	{"", 0x1B, true, "Domain Master Browser"},
	{"", 0x1C, false, "Domain Controllers"},
	{"", 0x1D, true, "Master Browser"},
	{"", 0x1E, false, "Browser Service Elections"},
	{"", 0x2B, true, "Lotus Notes Server Service"},
	{"IRISMULTICAST", 0x2F, false, "Lotus Notes"},
	{"IRISNAMESERVER", 0x33, false, "Lotus Notes"},
	{"Forte_$ND800ZA", 0x20, true, "DCA IrmaLan Gateway Server Service"},
}

// DescribeService returns the description of the first table entry matching
// suffix and unique whose pattern occurs in name. Unmatched codes yield
// "Unknown service (code <hex>)".
func DescribeService(suffix byte, unique bool, name string) string {
	for _, s := range services {
		if s.Suffix != suffix || s.Unique != unique {
			continue
		}
		if strings.Contains(name, s.Pattern) {
			return s.Description
		}
	}
	return fmt.Sprintf("Unknown service (code %x)", suffix)
}
