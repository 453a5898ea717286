package fraud

import "errors"

var ErrReasonRequired = errors.New("flag reason is required")
