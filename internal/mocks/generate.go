package mocks

//go:generate mockery --name RangeFetcher --srcpkg github.com/aevon-lab/activity-archive/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name ActivityStore --srcpkg github.com/aevon-lab/activity-archive/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
