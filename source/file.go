package source

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/vecstream/internal/conv"
	"github.com/hupe1980/vecstream/internal/hash"
	"github.com/hupe1980/vecstream/internal/mmap"
	"github.com/hupe1980/vecstream/model"
)

// Vector file layout (little endian):
//
//	header  : magic "VSRC" | version u16 | reserved u16 | dim u32
//	body    : count*dim float32
//	deleted : serialized roaring bitmap
//	trailer : count u32 | deletedLen u32 | crc32c u32 (over everything before it)
const (
	fileMagic      = "VSRC"
	fileVersion    = uint16(1)
	fileHeaderSize = 12
	fileTailSize   = 12
)

// ErrCorruptFile is returned when a vector file fails validation.
var ErrCorruptFile = errors.New("source: corrupt vector file")

// FileWriter writes a vector file.
type FileWriter struct {
	f       *os.File
	bw      *bufio.Writer
	crc     *hash.Writer
	dim     int
	count   uint32
	deleted *roaring.Bitmap
	buf     []byte
}

// CreateFile creates a vector file at path for vectors of the given dimension.
func CreateFile(path string, dim int) (*FileWriter, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("source: invalid dimension %d", dim)
	}
	udim, err := conv.IntToUint32(dim)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriterSize(f, 64*1024)
	w := &FileWriter{
		f:       f,
		bw:      bw,
		crc:     hash.NewWriter(bw),
		dim:     dim,
		deleted: roaring.New(),
		buf:     make([]byte, dim*4),
	}

	var hdr [fileHeaderSize]byte
	copy(hdr[0:4], fileMagic)
	binary.LittleEndian.PutUint16(hdr[4:], fileVersion)
	binary.LittleEndian.PutUint32(hdr[8:], udim)
	if _, err := w.crc.Write(hdr[:]); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// Add appends a document and returns its id.
func (w *FileWriter) Add(vec []float32) (model.DocID, error) {
	if len(vec) != w.dim {
		return 0, fmt.Errorf("source: dimension mismatch: expected %d, got %d", w.dim, len(vec))
	}
	if w.count == math.MaxUint32 {
		return 0, errors.New("source: too many documents")
	}
	for i, v := range vec {
		binary.LittleEndian.PutUint32(w.buf[i*4:], math.Float32bits(v))
	}
	if _, err := w.crc.Write(w.buf); err != nil {
		return 0, err
	}
	id := model.DocID(w.count)
	w.count++
	return id, nil
}

// Delete marks an already written document as deleted.
func (w *FileWriter) Delete(doc model.DocID) error {
	if uint32(doc) >= w.count {
		return fmt.Errorf("%w: %d", ErrDocNotFound, doc)
	}
	w.deleted.Add(uint32(doc))
	return nil
}

// Close writes the deletion bitmap and trailer, and closes the file.
func (w *FileWriter) Close() error {
	w.deleted.RunOptimize()
	var del bytes.Buffer
	if _, err := w.deleted.WriteTo(&del); err != nil {
		_ = w.f.Close()
		return err
	}
	delLen, err := conv.IntToUint32(del.Len())
	if err != nil {
		_ = w.f.Close()
		return err
	}
	if _, err := w.crc.Write(del.Bytes()); err != nil {
		_ = w.f.Close()
		return err
	}

	var tail [fileTailSize]byte
	binary.LittleEndian.PutUint32(tail[0:], w.count)
	binary.LittleEndian.PutUint32(tail[4:], delLen)
	if _, err := w.crc.Write(tail[:8]); err != nil {
		_ = w.f.Close()
		return err
	}
	binary.LittleEndian.PutUint32(tail[8:], w.crc.Sum32())
	if _, err := w.bw.Write(tail[8:]); err != nil {
		_ = w.f.Close()
		return err
	}

	if err := w.bw.Flush(); err != nil {
		_ = w.f.Close()
		return err
	}
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}

// File is a read-only, memory-mapped vector file.
type File struct {
	m       *mmap.Mapping
	body    []byte
	dim     int
	count   uint32
	deleted *roaring.Bitmap
}

// OpenFile maps and validates the vector file at path.
func OpenFile(path string) (*File, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	f, err := parseFile(m.Bytes())
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.m = m
	_ = m.Advise(mmap.AccessSequential)
	return f, nil
}

func parseFile(data []byte) (*File, error) {
	if len(data) < fileHeaderSize+fileTailSize {
		return nil, fmt.Errorf("%w: too small (%d bytes)", ErrCorruptFile, len(data))
	}
	if string(data[0:4]) != fileMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptFile)
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptFile, v)
	}

	crcOff := len(data) - 4
	if got, want := hash.CRC32C(data[:crcOff]), binary.LittleEndian.Uint32(data[crcOff:]); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptFile)
	}

	dim, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(data[8:]))
	if err != nil || dim == 0 {
		return nil, fmt.Errorf("%w: invalid dimension", ErrCorruptFile)
	}
	count := binary.LittleEndian.Uint32(data[len(data)-12:])
	delLen := uint64(binary.LittleEndian.Uint32(data[len(data)-8:]))

	bodyLen := uint64(count) * uint64(dim) * 4
	if uint64(fileHeaderSize)+bodyLen+delLen+fileTailSize != uint64(len(data)) {
		return nil, fmt.Errorf("%w: size mismatch", ErrCorruptFile)
	}

	delStart := fileHeaderSize + int(bodyLen)
	deleted := roaring.New()
	if err := deleted.UnmarshalBinary(data[delStart : delStart+int(delLen)]); err != nil {
		return nil, fmt.Errorf("%w: deletions: %w", ErrCorruptFile, err)
	}

	return &File{
		body:    data[fileHeaderSize:delStart],
		dim:     dim,
		count:   count,
		deleted: deleted,
	}, nil
}

// Dimension returns the vector dimension.
func (f *File) Dimension() int { return f.dim }

// Count returns the number of documents, including deleted ones.
func (f *File) Count() int { return int(f.count) }

// TotalLiveDocs implements Source.
func (f *File) TotalLiveDocs() int64 {
	return int64(f.count) - int64(f.deleted.GetCardinality())
}

// Iterator implements Source.
func (f *File) Iterator() (Iterator, error) {
	if f.m == nil || f.m.Bytes() == nil {
		return nil, ErrClosed
	}
	return &fileIterator{
		file:    f,
		scratch: make([]float32, f.dim),
	}, nil
}

// Close unmaps the file. Open iterators fail on their next call to Next.
func (f *File) Close() error {
	if f.m == nil {
		return nil
	}
	return f.m.Close()
}

type fileIterator struct {
	file    *File
	next    uint32
	doc     model.DocID
	scratch []float32
	err     error
	done    bool
}

func (it *fileIterator) Next() bool {
	if it.done {
		return false
	}
	if it.file.m.Bytes() == nil {
		it.err = ErrClosed
		it.done = true
		return false
	}
	for it.next < it.file.count && it.file.deleted.Contains(it.next) {
		it.next++
	}
	if it.next >= it.file.count {
		it.done = true
		return false
	}

	row := it.next
	it.next++
	it.doc = model.DocID(row)

	off := int(row) * it.file.dim * 4
	raw := it.file.body[off : off+it.file.dim*4]
	for i := range it.scratch {
		it.scratch[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return true
}

func (it *fileIterator) DocID() model.DocID { return it.doc }

func (it *fileIterator) Vector() []float32 { return it.scratch }

func (it *fileIterator) Err() error { return it.err }

func (it *fileIterator) Close() error {
	it.done = true
	return nil
}
