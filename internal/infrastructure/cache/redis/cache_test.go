package redis

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/pkg/client"
	pkgerrors "github.com/focosview/focosview/pkg/errors"
)

var _ client.ResponseCache = (*Cache)(nil)

type countingMetrics struct {
	hits, misses int
}

func (m *countingMetrics) CacheAccess(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

type CacheTestSuite struct {
	suite.Suite
	mock    redismock.ClientMock
	client  *Client
	metrics *countingMetrics
	cache   *Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = NewClientFrom(db, logging.NewNopLogger())
	s.metrics = &countingMetrics{}
	s.cache = NewCache(s.client, logging.NewNopLogger(),
		WithPrefix("test:"), WithTTL(time.Minute), WithJitter(false), WithMetrics(s.metrics))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func (s *CacheTestSuite) TestGetBody_Hit() {
	s.mock.ExpectGet("test:/api/options?entity=uf").SetVal(`{"items":[]}`)

	body, ok, err := s.cache.GetBody(context.Background(), "/api/options?entity=uf")
	s.NoError(err)
	s.True(ok)
	s.Equal(`{"items":[]}`, string(body))
	s.Equal(1, s.metrics.hits)
}

func (s *CacheTestSuite) TestGetBody_Miss() {
	s.mock.ExpectGet("test:k").RedisNil()

	body, ok, err := s.cache.GetBody(context.Background(), "k")
	s.NoError(err)
	s.False(ok)
	s.Nil(body)
	s.Equal(1, s.metrics.misses)
}

func (s *CacheTestSuite) TestGetBody_Error() {
	s.mock.ExpectGet("test:k").SetErr(stderrors.New("connection refused"))

	_, ok, err := s.cache.GetBody(context.Background(), "k")
	s.False(ok)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
	s.Zero(s.metrics.hits + s.metrics.misses)
}

func (s *CacheTestSuite) TestSetBody() {
	body := []byte(`{"bbox":[1,2,3,4]}`)
	s.mock.ExpectSet("test:/api/bounds?entity=uf&key=MT", body, time.Minute).SetVal("OK")

	s.NoError(s.cache.SetBody(context.Background(), "/api/bounds?entity=uf&key=MT", body))
}

func (s *CacheTestSuite) TestSetBody_Error() {
	body := []byte(`{}`)
	s.mock.ExpectSet("test:k", body, time.Minute).SetErr(stderrors.New("readonly"))

	err := s.cache.SetBody(context.Background(), "k", body)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestPurge() {
	s.mock.ExpectScan(0, "test:*", 100).SetVal([]string{"test:a", "test:b"}, 7)
	s.mock.ExpectDel("test:a", "test:b").SetVal(2)
	s.mock.ExpectScan(7, "test:*", 100).SetVal([]string{"test:c"}, 0)
	s.mock.ExpectDel("test:c").SetVal(1)

	n, err := s.cache.Purge(context.Background())
	s.NoError(err)
	s.Equal(int64(3), n)
}

func (s *CacheTestSuite) TestClosedClient() {
	s.NoError(s.client.Close())

	_, _, err := s.cache.GetBody(context.Background(), "k")
	s.ErrorIs(err, ErrClientClosed)
	s.ErrorIs(s.cache.SetBody(context.Background(), "k", nil), ErrClientClosed)
	s.ErrorIs(s.cache.Ping(context.Background()), ErrClientClosed)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestExpiryJitterStaysWithinTenPercent(t *testing.T) {
	c := NewCache(NewClientFrom(nil, nil), nil, WithTTL(time.Hour))
	for i := 0; i < 100; i++ {
		d := c.expiry()
		assert.GreaterOrEqual(t, d, 54*time.Minute)
		assert.LessOrEqual(t, d, 66*time.Minute)
	}
}
