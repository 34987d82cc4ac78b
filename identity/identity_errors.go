package identity

import "errors"

var (
	UserCancelledErr       = errors.New("user cancelled the interaction")
	InteractionRequiredErr = errors.New("silent acquisition needs user interaction")
	RedirectStartedErr     = errors.New("redirect login started; complete it in the browser and restart")
	NotInitializedErr      = errors.New("identity client not initialized")
)
