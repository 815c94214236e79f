package geospatial

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// NewDataProxy returns a reverse proxy that forwards requests under prefix
// to the VWorld API host with the prefix stripped, so browser clients can
// call the data API from the same origin.
func NewDataProxy(target, prefix string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: parse proxy target %s", target)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, eris.Errorf("geo: proxy target %q must be an absolute URL", target)
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, prefix)
			pr.Out.URL.RawPath = ""
			if pr.Out.URL.Path == "" {
				pr.Out.URL.Path = "/"
			}
			pr.SetURL(u)
			pr.Out.Host = u.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			zap.L().Error("geo: data proxy failed", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	}
	return rp, nil
}
