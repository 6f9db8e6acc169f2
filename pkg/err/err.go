package errprocess

import (
	"errors"

	"dm_chat_service/pkg/logger"
)

// Set log the error message and return it as an error
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
