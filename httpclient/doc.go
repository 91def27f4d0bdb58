// Package httpclient sends forwarded requests and health probes. Each call
// is one attempt; the reply body is read in full and failures are split
// into transport errors, which carry no reply, and non-2xx replies.
//
//	client, err := httpclient.New(httpclient.Config{Timeout: 10 * time.Second})
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    URL:    "http://10.0.0.5:3002/items/42",
//	})
//	if httpclient.IsTransport(err) {
//	    // no reply was received
//	}
package httpclient
