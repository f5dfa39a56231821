package diag

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CorrelationHeader carries the request id in both directions
const CorrelationHeader = "X-Request-ID"

type requestObserver struct {
	http.ResponseWriter

	bytes int
	code  int
}

func (s *requestObserver) WriteHeader(code int) {
	s.ResponseWriter.WriteHeader(code)
	s.code = code
}

func (s *requestObserver) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n

	if s.code == 0 {
		s.code = 200
	}

	return n, err
}

// logRequests wraps next and logs every completed request with a correlation id. An id
// sent by the client is reused, otherwise a new uuid is generated.
func logRequests(log *logrus.Entry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()

		id := r.Header.Get(CorrelationHeader)
		if len(id) == 0 {
			id = uuid.New().String()
		} else if len(id) > 40 {
			id = id[0:40]
		}
		w.Header().Set(CorrelationHeader, id)

		ro := requestObserver{
			ResponseWriter: w,
		}

		next.ServeHTTP(&ro, r)

		log.WithFields(logrus.Fields{
			"id":       id,
			"remote":   r.RemoteAddr,
			"code":     ro.code,
			"bytes":    ro.bytes,
			"duration": time.Since(begin).String(),
		}).Debugf("%s %s", r.Method, r.URL.RequestURI())
	})
}
