package uuid

import (
	"github.com/google/uuid"
	monitor "github.com/yashutanna/valr-loan-monitor"
)

type IDService struct{}

func (ids *IDService) NewID() monitor.ID {
	return uuid.New()
}

func (ids *IDService) NewIDFromString(id string) (monitor.ID, error) {
	return uuid.Parse(id)
}
