package mbr

// Type constants for the one-byte MBR partition type field. The list covers
// the types a partitioning tool normally encounters; any byte value is
// accepted on parse.
type Type byte

const (
	Empty            Type = 0x00
	Fat12            Type = 0x01
	XenixRoot        Type = 0x02
	XenixUsr         Type = 0x03
	Fat16            Type = 0x04
	ExtendedCHS      Type = 0x05
	Fat16b           Type = 0x06
	NTFS             Type = 0x07
	Fat32CHS         Type = 0x0b
	Fat32LBA         Type = 0x0c
	Fat16bLBA        Type = 0x0e
	ExtendedLBA      Type = 0x0f
	Linux            Type = 0x83
	LinuxSwap        Type = 0x82
	LinuxLVM         Type = 0x8e
	LinuxRAID        Type = 0xfd
	GPTProtective    Type = 0xee
	EFISystem        Type = 0xef
	VMWareFS         Type = 0xfb
	VMWareSwap       Type = 0xfc
	FreeBSD          Type = 0xa5
	OpenBSD          Type = 0xa6
	NetBSD           Type = 0xa9
	SolarisBoot      Type = 0xbe
	Solaris          Type = 0xbf
	HiddenFat12      Type = 0x11
	HiddenFat16      Type = 0x14
	HiddenFat16b     Type = 0x16
	HiddenNTFS       Type = 0x17
	HiddenFat32CHS   Type = 0x1b
	HiddenFat32LBA   Type = 0x1c
	HiddenFat16bLBA  Type = 0x1e
	MicrosoftDynamic Type = 0x42
	LinuxExtended    Type = 0x85
)

// isExtended reports whether the type byte marks a slot as the container of
// an EBR chain.
func (t Type) isExtended() bool {
	return t == ExtendedCHS || t == ExtendedLBA || t == LinuxExtended
}
