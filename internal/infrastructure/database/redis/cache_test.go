package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	pkgerrors "github.com/turtacn/FloraTraits/pkg/errors"
)

type record struct {
	Key   string `json:"key"`
	Value int    `json:"value"`
}

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.cache = NewRedisCache(NewClientFrom(db, nil), nil, WithPrefix("test:"), WithDefaultTTL(time.Hour))
}

func (s *CacheTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CacheTestSuite) TestGet_Hit() {
	data, _ := json.Marshal(record{Key: "seedCountLow", Value: 3})
	s.mock.ExpectGet("test:k1").SetVal(string(data))

	var got record
	s.Require().NoError(s.cache.Get(context.Background(), "k1", &got))
	s.Equal(record{Key: "seedCountLow", Value: 3}, got)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:k1").RedisNil()

	var got record
	err := s.cache.Get(context.Background(), "k1", &got)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeNotFound))
}

func (s *CacheTestSuite) TestGet_Error() {
	s.mock.ExpectGet("test:k1").SetErr(errors.New("conn reset"))

	var got record
	err := s.cache.Get(context.Background(), "k1", &got)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestSet_DefaultTTL() {
	data, _ := json.Marshal(record{Key: "a", Value: 1})
	s.mock.ExpectSet("test:k1", data, time.Hour).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "k1", record{Key: "a", Value: 1}, 0))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:a", "test:b").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "a", "b"))
	s.NoError(s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestGetOrLoad_Hit() {
	data, _ := json.Marshal(record{Key: "a", Value: 1})
	s.mock.ExpectGet("test:k1").SetVal(string(data))

	var got record
	hit, err := s.cache.GetOrLoad(context.Background(), "k1", &got, 0, func(context.Context) (any, error) {
		s.Fail("loader must not run on a hit")
		return nil, nil
	})
	s.NoError(err)
	s.True(hit)
	s.Equal(1, got.Value)
}

func (s *CacheTestSuite) TestGetOrLoad_MissLoadsAndStores() {
	data, _ := json.Marshal(record{Key: "a", Value: 2})
	s.mock.ExpectGet("test:k1").RedisNil()
	s.mock.ExpectSet("test:k1", data, time.Minute).SetVal("OK")

	var calls int32
	var got record
	hit, err := s.cache.GetOrLoad(context.Background(), "k1", &got, time.Minute, func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return record{Key: "a", Value: 2}, nil
	})
	s.NoError(err)
	s.False(hit)
	s.Equal(int32(1), calls)
	s.Equal(record{Key: "a", Value: 2}, got)
}

func (s *CacheTestSuite) TestGetOrLoad_LoaderError() {
	s.mock.ExpectGet("test:k1").RedisNil()

	var got record
	_, err := s.cache.GetOrLoad(context.Background(), "k1", &got, 0, func(context.Context) (any, error) {
		return nil, errors.New("pipeline failed")
	})
	s.EqualError(err, "pipeline failed")
}

func (s *CacheTestSuite) TestGetOrLoad_WriteFailureStillReturnsValue() {
	data, _ := json.Marshal(record{Key: "a", Value: 5})
	s.mock.ExpectGet("test:k1").RedisNil()
	s.mock.ExpectSet("test:k1", data, time.Hour).SetErr(errors.New("readonly"))

	var got record
	_, err := s.cache.GetOrLoad(context.Background(), "k1", &got, 0, func(context.Context) (any, error) {
		return record{Key: "a", Value: 5}, nil
	})
	s.NoError(err)
	s.Equal(5, got.Value)
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestContentKey(t *testing.T) {
	a := ContentKey("v1", "Seeds 3–12.")
	b := ContentKey("v2", "Seeds 3–12.")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ContentKey("v1", "Seeds 3–12."))
	assert.Len(t, a, len("record:")+64)
}

func TestClient_CloseTwice(t *testing.T) {
	db, _ := redismock.NewClientMock()
	c := NewClientFrom(db, nil)
	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), ErrClientClosed)
}

func TestClient_Ping(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, NewClientFrom(db, nil).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
