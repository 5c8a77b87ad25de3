package checkout

import "time"

var timeNow = time.Now
