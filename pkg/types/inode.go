package types

import (
	"fmt"
)

type Ino uint32

const (
	DirectBlocksCount      = 12
	InodeSize         Byte = 64
	InodesPerBlock    Ino  = Ino(BlockSize / InodeSize)
	InoNil            Ino  = 0
	InoRoot           Ino  = 1
	InoFirst          Ino  = 2
)

type Inode struct {
	Ino      Ino                      `json:"ino" yaml:"ino"`
	Type     FileType                 `json:"type" yaml:"type"`
	Major    int16                    `json:"major" yaml:"major"`
	Minor    int16                    `json:"minor" yaml:"minor"`
	NLink    int16                    `json:"nlink" yaml:"nlink"`
	Size     uint32                   `json:"size" yaml:"size"`
	Direct   [DirectBlocksCount]Block `json:"direct" yaml:"direct,flow"`
	Indirect Block                    `json:"indirect" yaml:"indirect"`
}

// Free reports whether the inode is unallocated.
func (inode *Inode) Free() bool { return inode.Type == FileTypeFree }

// HasBlocks reports whether the inode's address fields refer to data blocks.
// Device inodes carry a major/minor pair instead of data.
func (inode *Inode) HasBlocks() bool {
	return inode.Type == FileTypeFile || inode.Type == FileTypeDir
}

type FileType int16

const (
	FileTypeFree FileType = iota
	FileTypeDir
	FileTypeFile
	FileTypeDevice
)

func (ft FileType) String() string {
	switch ft {
	case FileTypeFree:
		return "Free"
	case FileTypeDir:
		return "Dir"
	case FileTypeFile:
		return "File"
	case FileTypeDevice:
		return "Device"
	default:
		// the type field comes straight off the disk, so an unknown value
		// is a corruption to report rather than a programming error.
		return fmt.Sprintf("Invalid(%d)", int16(ft))
	}
}

func (ft FileType) MarshalJSON() ([]byte, error) {
	s := ft.String()
	out := make([]byte, len(s)+2)
	out[0] = '"'
	out[len(out)-1] = '"'
	copy(out[1:], s)
	return out, nil
}

func (ft FileType) MarshalYAML() (interface{}, error) {
	return ft.String(), nil
}

func (ft FileType) Validate() error {
	if ft < FileTypeFree || ft > FileTypeDevice {
		return fmt.Errorf(
			"validating file type `%d`: %w",
			ft,
			InvalidFileTypeErr,
		)
	}
	return nil
}

const (
	InvalidFileTypeErr ConstError = "invalid file type"
)
