// Package workerpool provides a small bounded pool for operations that
// are inherently blocking (feed parsing, mail transports) so they run
// off the orchestration goroutines without unbounded fan-out.
//
//	pool := workerpool.New(4)
//	defer pool.Close()
//
//	feed, err := workerpool.Run(ctx, pool, func() (*gofeed.Feed, error) {
//	    return parser.ParseString(body)
//	})
package workerpool
