package s3

import (
	"errors"
	"io"
	"log"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/EgorLis/event-gallery/internal/domain"
)

func TestClassify(t *testing.T) {
	s := &Storage{logger: log.New(io.Discard, "", 0)}

	notFound := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	assert.ErrorIs(t, s.classify("GET", "k", notFound), domain.ErrNotFound)

	denied := minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}
	err := s.classify("GET", "k", denied)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.classify("GET", "k", errors.New("dial tcp: refused")), domain.ErrStorageUnavailable)
}
