package campaign

import "errors"

var (
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrRosterNotAttachable = errors.New("campaign no longer accepts a roster")
	ErrCampaignNotPayable  = errors.New("campaign is not in a payable state")
	ErrAlreadyPaid         = errors.New("campaign is already paid")
	ErrInvalidCampaign     = errors.New("invalid campaign submission")
)
