package dag_test

import "github.com/dagma-go/dagma/cache"

func dagCacheZero() cache.Descriptor { return cache.Descriptor{} }

func dagFpZero() cache.Fingerprint { return cache.Fingerprint{} }
