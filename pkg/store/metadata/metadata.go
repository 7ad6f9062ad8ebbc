// Package metadata implements the metadata store: the centrepiece of the
// indexing layer (component D). It keeps a per-document BlobInfo record
// plus three inverted bitvector indices — tags, field/value pairs (via a
// field-name interner and a fixed-width composite key), and per-owner
// masks — consistent with each other through diff-purge-on-update.
package metadata

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/menmos/menmosd/pkg/bitvector"
	"github.com/menmos/menmosd/pkg/kv"
	"github.com/menmos/menmosd/pkg/menmoserr"
	"github.com/menmos/menmosd/pkg/store/bitvectree"
	"github.com/menmos/menmosd/pkg/store/idmap"
	"github.com/menmos/menmosd/pkg/types"
)

// Store is the metadata store.
type Store struct {
	meta kv.Tree // DocIndex (u32 LE) -> serialized BlobInfo

	tagMap      *bitvectree.Tree // lowercased tag -> bitvector
	fieldMap    *bitvectree.Tree // field_id(BE u32) || value -> bitvector
	userMaskMap *bitvectree.Tree // lowercased owner -> bitvector

	fields *idmap.Map // lowercased field name <-> field_id
}

// New wires a metadata store over its four backing trees.
func New(meta kv.Tree, tagMap, fieldMap, userMaskMap kv.Tree, fields *idmap.Map) *Store {
	return &Store{
		meta:        meta,
		tagMap:      bitvectree.New(tagMap),
		fieldMap:    bitvectree.New(fieldMap),
		userMaskMap: bitvectree.New(userMaskMap),
		fields:      fields,
	}
}

func encodeDocIndexLE(idx uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, idx)
	return buf
}

// compositeFieldKey builds the fixed-width field_id||value key described
// in §4.D: 4 bytes big-endian field id, then the raw value bytes with no
// terminator or length prefix.
func compositeFieldKey(fieldID uint32, value string) []byte {
	buf := make([]byte, 4+len(value))
	binary.BigEndian.PutUint32(buf[:4], fieldID)
	copy(buf[4:], value)
	return buf
}

func decodeFieldIDPrefix(key []byte) (fieldID uint32, value string) {
	fieldID = binary.BigEndian.Uint32(key[:4])
	value = string(key[4:])
	return
}

// Insert stores info under docIndex, diff-purging any tags/field-values
// that were present in a prior record but are absent or changed now.
func (s *Store) Insert(docIndex uint32, info types.BlobInfo) error {
	for _, tag := range info.Meta.Tags {
		if strings.Contains(tag, "$") {
			return menmoserr.New(menmoserr.InvalidArgument, "tag must not contain the legacy separator '$'")
		}
	}

	prior, err := s.Get(docIndex)
	if err != nil {
		return err
	}

	if err := s.userMaskMap.Insert([]byte(strings.ToLower(info.Owner)), docIndex); err != nil {
		return err
	}

	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := s.meta.Put(encodeDocIndexLE(docIndex), raw); err != nil {
		return err
	}

	if prior != nil {
		if err := s.diffPurgeTags(docIndex, prior.Meta.Tags, info.Meta.Tags); err != nil {
			return err
		}
		if err := s.diffPurgeFields(docIndex, prior.Meta.Fields, info.Meta.Fields); err != nil {
			return err
		}
	}

	for _, tag := range info.Meta.Tags {
		if err := s.tagMap.Insert([]byte(strings.ToLower(tag)), docIndex); err != nil {
			return err
		}
	}
	for field, value := range info.Meta.Fields {
		if value == "" {
			continue
		}
		fieldID, err := s.fields.GetOrAssign([]byte(strings.ToLower(field)))
		if err != nil {
			return err
		}
		if err := s.fieldMap.Insert(compositeFieldKey(fieldID, value), docIndex); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) diffPurgeTags(docIndex uint32, oldTags, newTags []string) error {
	newSet := make(map[string]struct{}, len(newTags))
	for _, t := range newTags {
		newSet[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range oldTags {
		lower := strings.ToLower(t)
		if _, stillPresent := newSet[lower]; !stillPresent {
			if err := s.tagMap.PurgeKey([]byte(lower), docIndex); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) diffPurgeFields(docIndex uint32, oldFields, newFields map[string]string) error {
	for field, oldValue := range oldFields {
		if oldValue == "" {
			continue
		}
		newValue, stillSame := newFields[field]
		if stillSame && newValue == oldValue {
			continue
		}
		fieldID, ok, err := s.fields.Get([]byte(strings.ToLower(field)))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := s.fieldMap.PurgeKey(compositeFieldKey(fieldID, oldValue), docIndex); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the BlobInfo for docIndex, or nil if absent.
func (s *Store) Get(docIndex uint32) (*types.BlobInfo, error) {
	raw, err := s.meta.Get(encodeDocIndexLE(docIndex))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var info types.BlobInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		panic(fmt.Sprintf("metadata: corrupt blob info for doc index %d: %v", docIndex, err))
	}
	return &info, nil
}

// LoadUserMask returns the bitvector of documents owned by username.
func (s *Store) LoadUserMask(username string) (*bitvector.Bitvector, error) {
	return s.userMaskMap.Load([]byte(strings.ToLower(username)))
}

// LoadTag returns the bitvector of documents carrying tag.
func (s *Store) LoadTag(tag string) (*bitvector.Bitvector, error) {
	return s.tagMap.Load([]byte(strings.ToLower(tag)))
}

// LoadKeyValue returns the bitvector of documents with field==value.
// Returns an empty bitvector if the field name is unknown.
func (s *Store) LoadKeyValue(field, value string) (*bitvector.Bitvector, error) {
	fieldID, ok, err := s.fields.Get([]byte(strings.ToLower(field)))
	if err != nil {
		return nil, err
	}
	if !ok {
		return bitvector.New(), nil
	}
	return s.fieldMap.Load(compositeFieldKey(fieldID, value))
}

// LoadKey returns the OR of every value's bitvector for field. Returns an
// empty bitvector if the field name is unknown.
func (s *Store) LoadKey(field string) (*bitvector.Bitvector, error) {
	fieldID, ok, err := s.fields.Get([]byte(strings.ToLower(field)))
	if err != nil {
		return nil, err
	}
	if !ok {
		return bitvector.New(), nil
	}

	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, fieldID)

	result := bitvector.New()
	err = s.fieldMap.ScanPrefix(prefix, func(key []byte, bv *bitvector.Bitvector) error {
		result = bitvector.Or(result, bv)
		return nil
	})
	return result, err
}

// ListAllTags returns, for every tag in the tree (or just those
// overlapping mask, when provided), the popcount of its bitvector ANDed
// with mask. Tags with a resulting count of zero are dropped. A nil mask
// means no filtering: the raw popcount is used.
func (s *Store) ListAllTags(mask *bitvector.Bitvector) (map[string]uint64, error) {
	result := make(map[string]uint64)
	err := s.tagMap.Iter(func(key []byte, bv *bitvector.Bitvector) error {
		count := bv.PopCount()
		if mask != nil {
			count = bitvector.And(bv, mask).PopCount()
		}
		if count > 0 {
			result[string(key)] = count
		}
		return nil
	})
	return result, err
}

// ListAllKVFields returns, for every field (or only those named in
// filter, when non-nil), a map of value -> popcount(bv AND mask),
// dropping zero entries. Unknown filter field names are skipped.
func (s *Store) ListAllKVFields(filter []string, mask *bitvector.Bitvector) (map[string]map[string]uint64, error) {
	result := make(map[string]map[string]uint64)

	addEntry := func(fieldName string, key []byte, bv *bitvector.Bitvector) {
		_, value := decodeFieldIDPrefix(key)
		count := bv.PopCount()
		if mask != nil {
			count = bitvector.And(bv, mask).PopCount()
		}
		if count == 0 {
			return
		}
		sub, ok := result[fieldName]
		if !ok {
			sub = make(map[string]uint64)
			result[fieldName] = sub
		}
		sub[value] = count
	}

	if filter == nil {
		fieldNameByID := make(map[uint32]string)
		return result, s.fieldMap.Iter(func(key []byte, bv *bitvector.Bitvector) error {
			fieldID, _ := decodeFieldIDPrefix(key)
			name, ok := fieldNameByID[fieldID]
			if !ok {
				raw, found, err := s.fields.Lookup(fieldID)
				if err != nil {
					return err
				}
				if !found {
					return nil
				}
				name = string(raw)
				fieldNameByID[fieldID] = name
			}
			addEntry(name, key, bv)
			return nil
		})
	}

	for _, fieldName := range filter {
		fieldID, ok, err := s.fields.Get([]byte(strings.ToLower(fieldName)))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		prefix := make([]byte, 4)
		binary.BigEndian.PutUint32(prefix, fieldID)
		if err := s.fieldMap.ScanPrefix(prefix, func(key []byte, bv *bitvector.Bitvector) error {
			addEntry(fieldName, key, bv)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Purge removes the raw meta for docIndex, then clears its bit from the
// tag, field and user-mask bitvector trees.
func (s *Store) Purge(docIndex uint32) error {
	if err := s.meta.Delete(encodeDocIndexLE(docIndex)); err != nil {
		return err
	}
	if err := s.tagMap.Purge(docIndex); err != nil {
		return err
	}
	if err := s.fieldMap.Purge(docIndex); err != nil {
		return err
	}
	return s.userMaskMap.Purge(docIndex)
}

// Clear wipes every sub-index and the field interner.
func (s *Store) Clear() error {
	if err := s.meta.Clear(); err != nil {
		return err
	}
	if err := s.tagMap.Clear(); err != nil {
		return err
	}
	if err := s.fieldMap.Clear(); err != nil {
		return err
	}
	if err := s.userMaskMap.Clear(); err != nil {
		return err
	}
	return s.fields.Clear()
}

// Flush is a no-op; bbolt commits every mutation durably as it happens,
// so the four sub-stores have nothing buffered to flush concurrently.
func (s *Store) Flush() error {
	return nil
}
