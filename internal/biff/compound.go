package biff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

const (
	sectorSize   = 512
	miniCutoff   = 4096
	dirEntrySize = 128
	headerDIFATs = 109

	freeSect   uint32 = 0xFFFFFFFF
	endOfChain uint32 = 0xFFFFFFFE
	fatSect    uint32 = 0xFFFFFFFD
	noStream   uint32 = 0xFFFFFFFF

	entryStream = 2
	entryRoot   = 5
	colorBlack  = 1
)

var compoundSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ErrTooLarge reports a stream that needs more FAT sectors than the header
// can index.
var ErrTooLarge = errors.New("stream too large for a single-stream compound file")

// Pack returns a version 3 compound file holding stream under name. Streams
// shorter than the mini stream cutoff are zero padded so they live in
// regular sectors.
func Pack(name string, stream []byte) ([]byte, error) {
	units := utf16.Encode([]rune(name))
	if len(units) == 0 || len(units) > 31 {
		return nil, fmt.Errorf("stream name %q must be 1 to 31 characters", name)
	}

	data := stream
	if len(data) < miniCutoff {
		data = make([]byte, miniCutoff)
		copy(data, stream)
	}
	streamSectors := (len(data) + sectorSize - 1) / sectorSize
	perFAT := sectorSize / 4
	fatSectors := 1
	for fatSectors*perFAT < streamSectors+1+fatSectors {
		fatSectors++
	}
	if fatSectors > headerDIFATs {
		return nil, ErrTooLarge
	}
	dirSector := streamSectors
	firstFAT := streamSectors + 1
	total := streamSectors + 1 + fatSectors

	out := make([]byte, sectorSize*(1+total))
	le := binary.LittleEndian

	h := out[:sectorSize]
	copy(h, compoundSignature)
	le.PutUint16(h[24:], 0x003E)
	le.PutUint16(h[26:], 0x0003)
	le.PutUint16(h[28:], 0xFFFE)
	le.PutUint16(h[30:], 9)
	le.PutUint16(h[32:], 6)
	le.PutUint32(h[44:], uint32(fatSectors))
	le.PutUint32(h[48:], uint32(dirSector))
	le.PutUint32(h[56:], miniCutoff)
	le.PutUint32(h[60:], endOfChain)
	le.PutUint32(h[68:], endOfChain)
	for i := range headerDIFATs {
		v := freeSect
		if i < fatSectors {
			v = uint32(firstFAT + i)
		}
		le.PutUint32(h[76+4*i:], v)
	}

	copy(out[sectorSize:], data)

	dir := sector(out, dirSector)
	root := dir[:dirEntrySize]
	putEntryName(root, utf16.Encode([]rune("Root Entry")))
	root[66] = entryRoot
	root[67] = colorBlack
	le.PutUint32(root[68:], noStream)
	le.PutUint32(root[72:], noStream)
	le.PutUint32(root[76:], 1)
	le.PutUint32(root[116:], endOfChain)

	entry := dir[dirEntrySize : 2*dirEntrySize]
	putEntryName(entry, units)
	entry[66] = entryStream
	entry[67] = colorBlack
	le.PutUint32(entry[68:], noStream)
	le.PutUint32(entry[72:], noStream)
	le.PutUint32(entry[76:], noStream)
	le.PutUint32(entry[116:], 0)
	le.PutUint64(entry[120:], uint64(len(data)))

	for i := 2; i < sectorSize/dirEntrySize; i++ {
		unused := dir[i*dirEntrySize:]
		le.PutUint32(unused[68:], noStream)
		le.PutUint32(unused[72:], noStream)
		le.PutUint32(unused[76:], noStream)
	}

	fat := make([]uint32, fatSectors*perFAT)
	for i := range fat {
		fat[i] = freeSect
	}
	for s := range streamSectors {
		fat[s] = uint32(s + 1)
	}
	fat[streamSectors-1] = endOfChain
	fat[dirSector] = endOfChain
	for i := range fatSectors {
		fat[firstFAT+i] = fatSect
	}
	for i := range fatSectors {
		sec := sector(out, firstFAT+i)
		for j := range perFAT {
			le.PutUint32(sec[4*j:], fat[i*perFAT+j])
		}
	}
	return out, nil
}

func sector(file []byte, n int) []byte {
	off := sectorSize * (n + 1)
	return file[off : off+sectorSize]
}

func putEntryName(entry []byte, units []uint16) {
	for i, u := range units {
		binary.LittleEndian.PutUint16(entry[2*i:], u)
	}
	binary.LittleEndian.PutUint16(entry[64:], uint16(2*(len(units)+1)))
}
