package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		href string
		want string
		ok   bool
	}{
		{
			name: "canonical post",
			href: "https://blog.naver.com/knitter1/223844145249",
			want: "https://blog.naver.com/knitter1/223844145249",
			ok:   true,
		},
		{
			name: "trailing slash",
			href: "https://blog.naver.com/knitter1/223844145249/",
			want: "https://blog.naver.com/knitter1/223844145249",
			ok:   true,
		},
		{
			name: "tracking query dropped",
			href: "https://blog.naver.com/knitter1/223844145249?from=search&trackingCode=blog",
			want: "https://blog.naver.com/knitter1/223844145249",
			ok:   true,
		},
		{
			name: "mobile host normalized",
			href: "https://m.blog.naver.com/knitter1/223844145249",
			want: "https://blog.naver.com/knitter1/223844145249",
			ok:   true,
		},
		{
			name: "protocol relative",
			href: "//blog.naver.com/knitter1/223844145249",
			want: "https://blog.naver.com/knitter1/223844145249",
			ok:   true,
		},
		{
			name: "legacy postview form",
			href: "https://blog.naver.com/PostView.naver?blogId=knitter1&logNo=223844145249",
			want: "https://blog.naver.com/knitter1/223844145249",
			ok:   true,
		},
		{
			name: "redirect wrapper",
			href: "https://search.naver.com/p/crd/rd?u=https%3A%2F%2Fblog.naver.com%2Fknitter1%2F223844145249",
			want: "https://blog.naver.com/knitter1/223844145249",
			ok:   true,
		},
		{
			name: "blog home without post id",
			href: "https://blog.naver.com/knitter1",
			ok:   false,
		},
		{
			name: "non numeric post id",
			href: "https://blog.naver.com/knitter1/about",
			ok:   false,
		},
		{
			name: "other host",
			href: "https://cafe.naver.com/knitting/12345",
			ok:   false,
		},
		{
			name: "relative path",
			href: "/knitter1/223844145249",
			ok:   false,
		},
		{
			name: "empty",
			href: "",
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Canonicalize(tc.href)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}
