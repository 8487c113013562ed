package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-nbt/internal/nbt/common/log"
	"github.com/haukened/rr-nbt/internal/nbt/domain"
)

func TestUDPCodec_EncodeStatusQuery(t *testing.T) {
	codec := NewUDPCodec(log.NewNoopLogger(), Options{Scope: "corp"})

	pkt := codec.EncodeStatusQuery(42)
	assert.Equal(t, EncodeStatusQuery(42, "corp"), pkt)
}

func TestUDPCodec_DecodeStatusResponse(t *testing.T) {
	names := make([]domain.NameRecord, 4)
	for i := range names {
		names[i] = domain.NameRecord{Name: domain.NewNetBIOSName("HOST", byte(i))}
	}
	pkt := buildResponse(11, EncodeName("*", 0, ""), len(names), names, footerBytes())

	codec := NewUDPCodec(log.NewNoopLogger(), Options{MaxNames: 3})
	info, err := codec.DecodeStatusResponse(pkt)
	require.NoError(t, err)
	assert.Len(t, info.Names, 3)
	assert.True(t, info.NamesTruncated)

	_, err = codec.DecodeStatusResponse(pkt[:30])
	assert.ErrorIs(t, err, domain.ErrTruncated)
}

func TestUDPCodec_DecodeFollowsScope(t *testing.T) {
	rec := domain.NameRecord{Name: domain.NewNetBIOSName("LABBOX", 0x20), Flags: 0x0400}
	scoped := buildResponse(5, EncodeName("*", 0, "corp"), 1, []domain.NameRecord{rec}, footerBytes())

	info, err := NewUDPCodec(log.NewNoopLogger(), Options{Scope: "corp"}).DecodeStatusResponse(scoped)
	require.NoError(t, err)
	assert.Equal(t, "corp", info.Header.QuestionScope)
	assert.Equal(t, []domain.NameRecord{rec}, info.Names)

	plain, _ := oneNameResponse()
	plain[domain.HeaderSize+domain.QuestionNameSize-1] = 0x20
	info, err = NewUDPCodec(log.NewNoopLogger(), Options{}).DecodeStatusResponse(plain)
	require.NoError(t, err)
	assert.True(t, info.Complete)
	assert.Len(t, info.Names, 1)
}

type taggedLogger struct {
	log.Logger
	fields map[string]any
}

func (l *taggedLogger) With(fields map[string]any) log.Logger {
	l.fields = fields
	return l
}

func TestNewUDPCodec_TagsLogger(t *testing.T) {
	logger := &taggedLogger{Logger: log.NewNoopLogger()}
	NewUDPCodec(logger, Options{})
	assert.Equal(t, "wire", logger.fields["component"])
}

func TestNewUDPCodec_DefaultCapacity(t *testing.T) {
	codec := NewUDPCodec(log.NewNoopLogger(), Options{})
	assert.Equal(t, domain.DefaultMaxNames, codec.maxNames)
	assert.Equal(t, "", codec.scope)
}
