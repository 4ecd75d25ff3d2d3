package apigateway_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	apigateway "github.com/hadivarp/apigateway"
	"github.com/hadivarp/apigateway/mock"
)

func ExampleGateway() {
	tr := mock.NewTransport(mock.JSON(http.StatusOK, `{"total":2}`))
	gw := apigateway.New(apigateway.WithHTTPClient(tr.Client()))
	defer gw.Close()

	err := gw.Register("images", apigateway.ProviderConfig{
		BaseURL:   "https://api.example.com",
		RateLimit: &apigateway.RateLimitPolicy{MaxRequests: 2, Window: time.Minute},
		CacheTTL:  time.Hour,
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx := context.Background()
	for _, q := range []string{"cats", "cats", "dogs"} {
		resp, err := gw.Get(ctx, "images", "search", map[string]any{"q": q})
		if err != nil {
			fmt.Println(q, "-> rate limited:", apigateway.IsRateLimitError(err))
			continue
		}
		fmt.Println(q, "->", resp.StatusCode, "cached:", resp.FromCache)
	}

	st, _ := gw.Stats("images")
	fmt.Println("requests made:", st.RequestsMade, "network calls:", tr.Calls())
	// Output:
	// cats -> 200 cached: false
	// cats -> 200 cached: true
	// dogs -> rate limited: true
	// requests made: 1 network calls: 1
}

// Many callers sharing one provider budget: only MaxRequests of them get through per window.
func ExampleGateway_concurrentCallers() {
	tr := mock.NewTransport()
	gw := apigateway.New(apigateway.WithHTTPClient(tr.Client()))
	defer gw.Close()

	_ = gw.Register("repos", apigateway.ProviderConfig{
		BaseURL:   "https://api.example.com",
		RateLimit: &apigateway.RateLimitPolicy{MaxRequests: 5, Window: time.Hour},
	})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		limited int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := gw.Get(context.Background(), "repos", fmt.Sprintf("repos/%d", i), nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apigateway.IsRateLimitError(err):
				limited++
			}
		}(i)
	}
	wg.Wait()

	fmt.Println("ok:", ok, "limited:", limited, "network calls:", tr.Calls())
	// Output:
	// ok: 5 limited: 15 network calls: 5
}
