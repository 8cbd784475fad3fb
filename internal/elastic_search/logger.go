package elastic_search

import "go.uber.org/zap"

// ElasticLogger sends the client trace log to zap at debug level.
type ElasticLogger struct{}

func (ElasticLogger) Printf(format string, v ...interface{}) {
	zap.S().Debugf("ElasticSearch: "+format, v...)
}
