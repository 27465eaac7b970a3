package probe

import (
	"net/url"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/domain"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/storage"
)

// ExtractUTM reads the five standard UTM parameters from pageURL. When any
// are present they become the session's attribution and are persisted to
// the session slot; when none are present the previously persisted
// attribution is reused. This gives first-touch semantics for the session
// even after navigating to URLs without UTM parameters. The slot is
// session-scoped: the tracker clears it when the session ends.
//
// Returns nil when no attribution exists. Storage failures are logged and
// treated as no attribution.
func ExtractUTM(pageURL string, st storage.Storage, log *zap.Logger) *domain.UTMParams {
	params := parseUTM(pageURL)

	if params != nil {
		persistUTM(params, st, log)
		return params
	}

	return loadUTM(st, log)
}

func parseUTM(pageURL string) *domain.UTMParams {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	query := parsed.Query()
	params := domain.UTMParams{
		Source:   query.Get("utm_source"),
		Medium:   query.Get("utm_medium"),
		Campaign: query.Get("utm_campaign"),
		Term:     query.Get("utm_term"),
		Content:  query.Get("utm_content"),
	}

	if params.IsZero() {
		return nil
	}
	return &params
}

func persistUTM(params *domain.UTMParams, st storage.Storage, log *zap.Logger) {
	encoded, err := json.Marshal(params)
	if err != nil {
		log.Warn("Could not encode UTM attribution", zap.Error(err))
		return
	}
	if err := st.Set(storage.KeyUTMParams, encoded); err != nil {
		log.Warn("Could not persist UTM attribution", zap.Error(err))
	}
}

func loadUTM(st storage.Storage, log *zap.Logger) *domain.UTMParams {
	stored, ok, err := st.Get(storage.KeyUTMParams)
	if err != nil {
		log.Warn("Could not load UTM attribution", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var params domain.UTMParams
	if err := json.Unmarshal(stored, &params); err != nil {
		log.Warn("Stored UTM attribution is corrupt, ignoring", zap.Error(err))
		return nil
	}
	if params.IsZero() {
		return nil
	}
	return &params
}
