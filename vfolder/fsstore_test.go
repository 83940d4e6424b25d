package vfolder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtureCard(t *testing.T, dir, name, n, tel string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	text := "BEGIN:VCARD\r\nVERSION:2.1\r\nN:" + n + "\r\nTEL:" + tel + "\r\nEND:VCARD\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
}

func newFixtureFSStore(t *testing.T) *FSStore {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "telecom"), 0o755))
	pbDir := filepath.Join(root, "telecom", "pb")
	writeFixtureCard(t, pbDir, "0.vcf", "Doe;John", "+15551111")
	writeFixtureCard(t, pbDir, "1.vcf", "Roe;Jane", "+15552222")
	return NewFSStore(root)
}

func TestFSStoreDirAndFileClassification(t *testing.T) {
	s := newFixtureFSStore(t)

	assert.True(t, s.IsDir("/telecom"))
	assert.True(t, s.IsDir("/telecom/pb"))
	assert.False(t, s.IsDir("/telecom/pb.vcf"))

	assert.True(t, s.IsFile("/telecom/pb.vcf"), "whole-phonebook file exists virtually because telecom/pb is a directory")
	assert.True(t, s.IsFile("/telecom/pb/0.vcf"))
	assert.True(t, s.IsFile("/telecom/pb/1.vcf"))
	assert.False(t, s.IsFile("/telecom/pb/2.vcf"), "index out of range")
	assert.False(t, s.IsFile("/telecom/ich.vcf"), "no sibling directory")

	assert.True(t, s.Exists("/telecom/pb"))
	assert.True(t, s.Exists("/telecom/pb.vcf"))
	assert.False(t, s.Exists("/telecom/spd"))
}

func TestFSStoreListDirAndCount(t *testing.T) {
	s := newFixtureFSStore(t)

	count, err := s.Count("/telecom/pb")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, err := s.ListDir("/telecom/pb", Query{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Doe;John", records[0].JoinedValues("N"))
	assert.Equal(t, "Roe;Jane", records[1].JoinedValues("N"))
}

func TestFSStoreListDirFiltersByQuery(t *testing.T) {
	s := newFixtureFSStore(t)

	records, err := s.ListDir("/telecom/pb", Query{Attribute: "N", Value: "Roe"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Roe;Jane", records[0].JoinedValues("N"))
}

func TestFSStoreRead(t *testing.T) {
	s := newFixtureFSStore(t)

	card, err := s.Read("/telecom/pb/1.vcf")
	require.NoError(t, err)
	assert.Equal(t, "Roe;Jane", card.JoinedValues("N"))

	_, err = s.Read("/telecom/pb/5.vcf")
	require.Error(t, err)
}

func TestFSStoreMakeDirsFailsIfExists(t *testing.T) {
	s := newFixtureFSStore(t)

	require.NoError(t, s.MakeDirs("/telecom/spd"))
	assert.True(t, s.IsDir("/telecom/spd"))

	err := s.MakeDirs("/telecom/spd")
	require.Error(t, err)
}

func TestFSStoreJoinNavigatesToParent(t *testing.T) {
	s := newFixtureFSStore(t)
	assert.Equal(t, "/telecom", s.Join("/telecom/pb", ".."))
	assert.Equal(t, "/telecom/pb", s.Join("/telecom", "pb"))
}

func TestFSStorePutWritesFileForMirrorVfolder(t *testing.T) {
	s := newFixtureFSStore(t)
	require.NoError(t, s.Put("/SIM1/telecom/pb/0.vcf", []byte("BEGIN:VCARD\r\nVERSION:2.1\r\nN:X\r\nEND:VCARD\r\n")))
	assert.True(t, s.IsFile("/SIM1/telecom/pb/0.vcf"))
}
