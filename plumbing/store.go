// Package plumbing holds the low-level, mechanical building blocks of the
// scanner: the on-disk state format, advisory locking, directory walking
// and volume-capacity queries. Nothing in this package
// knows about policy — that lives one layer up, in porcelain.
package plumbing

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jwiegley/dirscan/constants"
	"github.com/jwiegley/dirscan/types"
)

const (
	magicCurrent = "DSC2"
	magicLegacy  = "DSC1"
	storeVersion = uint32(1)
)

// LoadStore reads the state file at path and returns the tracked entries
// keyed by path. A missing file is not an error — it just means this is the
// first scan of this directory. Both the legacy bare-timestamp format and
// the current full-Entry format are recognized on load; only the current
// format is ever written back out, so the first save after loading a legacy
// database silently upgrades it.
func LoadStore(path string) (map[string]*types.Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*types.Entry{}, nil
	}
	if err != nil {
		return nil, types.NewScanError(types.CodeTransientIO, path, err)
	}
	if len(data) < 4 {
		return nil, types.NewScanError(types.CodeStateCorruption, path, fmt.Errorf("state file too short"))
	}

	switch string(data[:4]) {
	case magicLegacy:
		return decodeLegacy(path, data)
	case magicCurrent:
		return decodeCurrent(path, data)
	default:
		return nil, types.NewScanError(types.CodeStateCorruption, path, fmt.Errorf("unrecognized state file header"))
	}
}

// SaveStore atomically writes entries to path: it writes to a temp file in
// tempDir (or path's own directory when tempDir is empty), fsyncs, and
// renames over the destination so a reader never observes a partial file.
func SaveStore(path, tempDir string, entries map[string]*types.Entry) error {
	buf, err := encodeCurrent(entries)
	if err != nil {
		return types.NewScanError(types.CodeStateCorruption, path, err)
	}

	dir := tempDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return types.NewScanError(types.CodeTransientIO, path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return types.NewScanError(types.CodeTransientIO, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return types.NewScanError(types.CodeTransientIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		return types.NewScanError(types.CodeTransientIO, path, err)
	}
	if err := os.Chmod(tmpName, constants.DefaultFilePerm); err != nil {
		return types.NewScanError(types.CodeTransientIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return types.NewScanError(types.CodeTransientIO, path, err)
	}
	return nil
}

func encodeCurrent(entries map[string]*types.Entry) ([]byte, error) {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	buf.WriteString(magicCurrent)
	writeU32(&buf, storeVersion)
	writeU32(&buf, uint32(len(paths)))

	for _, p := range paths {
		e := entries[p]
		start := buf.Len()

		writeString(&buf, e.Path)
		writeI64(&buf, e.FirstSeen.UnixNano())
		writeStatInfo(&buf, e.Info)
		writeI64(&buf, e.LastCheck.UnixNano())
		if e.HasSum {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		buf.Write(e.Checksum[:])

		// Pad each record to an 8-byte boundary, the same alignment trick a
		// binary index format uses so entries stay easy to scan by hand.
		recLen := buf.Len() - start
		if pad := (8 - recLen%8) % 8; pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}

	sum := sha1.Sum(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes(), nil
}

func decodeCurrent(path string, data []byte) (map[string]*types.Entry, error) {
	if len(data) < 12+sha1.Size {
		return nil, types.NewScanError(types.CodeStateCorruption, path, fmt.Errorf("state file truncated"))
	}
	body, wantSum := data[:len(data)-sha1.Size], data[len(data)-sha1.Size:]
	gotSum := sha1.Sum(body)
	if !bytes.Equal(gotSum[:], wantSum) {
		return nil, types.NewScanError(types.CodeStateCorruption, path, fmt.Errorf("checksum mismatch"))
	}

	version := binary.BigEndian.Uint32(body[4:8])
	if version != storeVersion {
		return nil, types.NewScanError(types.CodeStateCorruption, path, fmt.Errorf("unsupported state version %d", version))
	}
	count := binary.BigEndian.Uint32(body[8:12])

	entries := make(map[string]*types.Entry, count)
	r := bytes.NewReader(body[12:])
	for i := uint32(0); i < count; i++ {
		start := int(r.Size()) - r.Len()

		p, err := readString(r)
		if err != nil {
			return nil, types.NewScanError(types.CodeStateCorruption, path, err)
		}
		firstSeen, err := readI64(r)
		if err != nil {
			return nil, types.NewScanError(types.CodeStateCorruption, path, err)
		}
		info, err := readStatInfo(r)
		if err != nil {
			return nil, types.NewScanError(types.CodeStateCorruption, path, err)
		}
		lastCheck, err := readI64(r)
		if err != nil {
			return nil, types.NewScanError(types.CodeStateCorruption, path, err)
		}
		hasSumByte, err := r.ReadByte()
		if err != nil {
			return nil, types.NewScanError(types.CodeStateCorruption, path, err)
		}
		var sum [20]byte
		if _, err := io.ReadFull(r, sum[:]); err != nil {
			return nil, types.NewScanError(types.CodeStateCorruption, path, err)
		}

		consumed := (int(r.Size()) - r.Len()) - start
		if pad := (8 - consumed%8) % 8; pad > 0 {
			r.Seek(int64(pad), 1)
		}

		entries[p] = &types.Entry{
			Path:      p,
			FirstSeen: time.Unix(0, firstSeen),
			PrevInfo:  info,
			Info:      info,
			LastCheck: time.Unix(0, lastCheck),
			HasSum:    hasSumByte == 1,
			Checksum:  sum,
		}
	}
	return entries, nil
}

// decodeLegacy reads the pre-existing "path -> bare timestamp" format this
// scanner's predecessor wrote, upgrading each record to an Entry with only
// FirstSeen populated. The next save silently rewrites these as full DSC2
// records.
func decodeLegacy(path string, data []byte) (map[string]*types.Entry, error) {
	if len(data) < 8 {
		return nil, types.NewScanError(types.CodeStateCorruption, path, fmt.Errorf("legacy state file truncated"))
	}
	count := binary.BigEndian.Uint32(data[4:8])
	entries := make(map[string]*types.Entry, count)
	r := bytes.NewReader(data[8:])
	for i := uint32(0); i < count; i++ {
		p, err := readString(r)
		if err != nil {
			return nil, types.NewScanError(types.CodeStateCorruption, path, err)
		}
		ts, err := readI64(r)
		if err != nil {
			return nil, types.NewScanError(types.CodeStateCorruption, path, err)
		}
		entries[p] = &types.Entry{Path: p, FirstSeen: time.Unix(0, ts)}
	}
	return entries, nil
}

func writeStatInfo(buf *bytes.Buffer, info *types.StatInfo) {
	if info == nil {
		info = &types.StatInfo{}
	}
	writeI64(buf, info.ModTime.UnixNano())
	writeI64(buf, info.AccTime.UnixNano())
	writeI64(buf, info.Size)
	writeU32(buf, uint32(info.Mode))
	writeU64(buf, info.Dev)
	writeU64(buf, info.Ino)
}

func readStatInfo(r *bytes.Reader) (*types.StatInfo, error) {
	modTime, err := readI64(r)
	if err != nil {
		return nil, err
	}
	accTime, err := readI64(r)
	if err != nil {
		return nil, err
	}
	size, err := readI64(r)
	if err != nil {
		return nil, err
	}
	mode, err := readU32(r)
	if err != nil {
		return nil, err
	}
	dev, err := readU64(r)
	if err != nil {
		return nil, err
	}
	ino, err := readU64(r)
	if err != nil {
		return nil, err
	}
	return &types.StatInfo{
		ModTime: time.Unix(0, modTime),
		AccTime: time.Unix(0, accTime),
		Size:    size,
		Mode:    os.FileMode(mode),
		Dev:     dev,
		Ino:     ino,
	}, nil
}

func writeU32(buf *bytes.Buffer, v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); buf.Write(b[:]) }
func writeU64(buf *bytes.Buffer, v uint64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], v); buf.Write(b[:]) }
func writeI64(buf *bytes.Buffer, v int64)  { writeU64(buf, uint64(v)) }

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func readI64(r *bytes.Reader) (int64, error) {
	v, err := readU64(r)
	return int64(v), err
}
