package container

import (
	app "fruit-vision/internal/application"
	"fruit-vision/internal/domain/port"
)

type Container struct {
	SessionService   *app.SessionService
	DetectionService *app.DetectionService
}

func New(sessionRepo port.SessionRepository, detectors port.DetectorRegistry, store port.MediaStore, runsDir string) *Container {
	sessionService := app.NewSessionService(sessionRepo)
	detectionService := app.NewDetectionService(detectors, store, runsDir)

	return &Container{
		SessionService:   sessionService,
		DetectionService: detectionService,
	}
}
