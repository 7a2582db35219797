//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
	"github.com/eliteGoblin/focusd/usage_mon/internal/infra"
	"github.com/eliteGoblin/focusd/usage_mon/internal/policy"
	"github.com/eliteGoblin/focusd/usage_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/usage_mon/test/fixtures"
)

var sonoma = infra.PlatformInfo{OS: "darwin", Platform: "darwin", Version: "14.4.1"}

type recordingSink struct{ alerts []daemon.Alert }

func (s *recordingSink) Notify(a daemon.Alert) { s.alerts = append(s.alerts, a) }

var _ = Describe("Usage Service over a knowledge database", func() {
	var (
		tmpDir   string
		dbPath   string
		now      time.Time
		midnight time.Time
		service  *usecase.Service
		ctx      context.Context
	)

	newService := func(dbPath string) *usecase.Service {
		logger := zap.NewNop()
		backend := infra.NewFileAccessBackend(dbPath, &infra.RealCommandRunner{})
		gate := usecase.NewPermissionGateWithUID(backend, os.Getuid(), usecase.DefaultPackageID, logger)
		source := infra.NewKnowledgeStore(dbPath, sonoma, logger)
		registry := infra.NewBundleRegistry(
			[]string{filepath.Join(tmpDir, "Applications")},
			[]string{filepath.Join(tmpDir, "System", "Applications")},
			fixtures.PlistReader{}, logger)
		return usecase.NewServiceWithGate(gate, source, registry, policy.NewRegistry(),
			func() time.Time { return now }, logger)
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "usagemon-integration-*")
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()

		now = time.Date(2024, time.March, 13, 15, 0, 0, 0, time.Local)
		midnight = time.Date(2024, time.March, 13, 0, 0, 0, 0, time.Local)

		Expect(fixtures.CreateBundles(tmpDir,
			fixtures.FakeBundle{Dir: "Applications", FileName: "Photoshop", BundleID: "com.adobe.Photoshop", DisplayName: "Photoshop"},
			fixtures.FakeBundle{Dir: "Applications", FileName: "Minecraft", BundleID: "com.mojang.minecraftlauncher", Name: "Minecraft"},
			fixtures.FakeBundle{Dir: "Applications", FileName: "Duolingo", BundleID: "com.duolingo.app", DisplayName: "Duolingo"},
			fixtures.FakeBundle{Dir: "System/Applications", FileName: "Notes", BundleID: "com.apple.Notes", DisplayName: "Notes"},
		)).To(Succeed())

		dbPath = filepath.Join(tmpDir, "knowledgeC.db")
		Expect(fixtures.WriteKnowledgeDB(dbPath,
			// Yesterday
			fixtures.UsageEvent("com.mojang.minecraftlauncher", midnight.Add(-3*time.Hour), midnight.Add(-time.Hour)),
			// Today
			fixtures.UsageEvent("com.adobe.Photoshop", midnight.Add(9*time.Hour), midnight.Add(10*time.Hour)),
			fixtures.InFocusEvent("com.adobe.Photoshop", midnight.Add(9*time.Hour), midnight.Add(11*time.Hour)),
			fixtures.UsageEvent("com.mojang.minecraftlauncher", midnight.Add(12*time.Hour), midnight.Add(14*time.Hour)),
			fixtures.UsageEvent("com.apple.Notes", midnight.Add(13*time.Hour), midnight.Add(13*time.Hour+500*time.Millisecond)),
			fixtures.UsageEvent("com.uninstalled.tool", now.Add(-90*time.Second), now.Add(-30*time.Second)),
		)).To(Succeed())

		service = newService(dbPath)
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("GetTodayUsageStats", func() {
		It("should report significant usage since midnight with resolved names", func() {
			summaries, err := service.GetTodayUsageStats(ctx)
			Expect(err).NotTo(HaveOccurred())

			byID := map[string]domain.UsageSummary{}
			for _, s := range summaries {
				byID[s.PackageID] = s
			}
			Expect(byID).To(HaveLen(3))
			Expect(byID).NotTo(HaveKey("com.apple.Notes"), "500ms is below the threshold")

			Expect(byID["com.adobe.Photoshop"].AppName).To(Equal("Photoshop"))
			Expect(byID["com.adobe.Photoshop"].TotalForegroundMs).To(Equal(time.Hour.Milliseconds()))
			Expect(*byID["com.adobe.Photoshop"].TotalVisibleMs).To(Equal((2 * time.Hour).Milliseconds()))
			Expect(byID["com.mojang.minecraftlauncher"].TotalForegroundMs).To(Equal((2 * time.Hour).Milliseconds()))
			Expect(byID["com.uninstalled.tool"].AppName).To(Equal("com.uninstalled.tool"))
		})
	})

	Describe("GetCurrentForegroundApp", func() {
		It("should return the app used in the last two minutes", func() {
			current, err := service.GetCurrentForegroundApp(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(current).NotTo(BeNil())
			Expect(current.PackageID).To(Equal("com.uninstalled.tool"))
			Expect(current.LastTimeUsed).To(Equal(now.Add(-30 * time.Second).UnixMilli()))
		})
	})

	Describe("GetDetailedUsageStats", func() {
		It("should bucket usage per day", func() {
			start := midnight.Add(-24 * time.Hour)
			summaries, err := service.GetDetailedUsageStats(ctx, start.UnixMilli(), now.UnixMilli(), "DAILY")
			Expect(err).NotTo(HaveOccurred())

			var minecraft []domain.UsageSummary
			for _, s := range summaries {
				if s.PackageID == "com.mojang.minecraftlauncher" {
					minecraft = append(minecraft, s)
				}
			}
			Expect(minecraft).To(HaveLen(2))
			Expect(minecraft[0].FirstTimestamp).To(Equal(start.UnixMilli()))
			Expect(minecraft[1].FirstTimestamp).To(Equal(midnight.UnixMilli()))
		})
	})

	Describe("GetInstalledApps", func() {
		It("should list user apps with categories", func() {
			apps, err := service.GetInstalledApps(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(apps).To(ConsistOf(
				domain.AppCatalogEntry{PackageID: "com.duolingo.app", AppName: "Duolingo", Category: domain.CategoryEducational},
				domain.AppCatalogEntry{PackageID: "com.adobe.Photoshop", AppName: "Photoshop", Category: domain.CategoryProductivity},
				domain.AppCatalogEntry{PackageID: "com.mojang.minecraftlauncher", AppName: "Minecraft", Category: domain.CategoryGames},
			))
		})
	})

	Describe("CategoryReport", func() {
		It("should roll today's usage up by category", func() {
			rows, err := service.CategoryReport(ctx, domain.TodayWindow(now))
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(len(domain.Categories)))

			byCategory := map[domain.Category]domain.CategoryUsage{}
			for _, r := range rows {
				byCategory[r.Category] = r
			}
			Expect(byCategory[domain.CategoryGames].TotalForegroundMs).To(Equal((2 * time.Hour).Milliseconds()))
			Expect(byCategory[domain.CategoryGames].AppsInstalled).To(Equal(1))
			Expect(byCategory[domain.CategoryProductivity].AppsUsed).To(Equal(1))
		})
	})

	Context("when the database is unreadable", func() {
		BeforeEach(func() {
			if os.Geteuid() == 0 {
				Skip("root can read any file")
			}
			Expect(os.Chmod(dbPath, 0000)).To(Succeed())
		})

		It("should refuse every query with NO_PERMISSION", func() {
			Expect(service.HasUsageStatsPermission()).To(BeFalse())

			_, err := service.GetTodayUsageStats(ctx)
			Expect(errors.Is(err, domain.ErrPermissionDenied)).To(BeTrue())
			Expect(domain.CodeOf(err)).To(Equal(domain.CodeNoPermission))

			current, err := service.GetCurrentForegroundApp(ctx)
			Expect(current).To(BeNil())
			Expect(domain.CodeOf(err)).To(Equal(domain.CodeNoPermission))
		})
	})

	Describe("Watcher", func() {
		It("should alert once when the games limit is reached", func() {
			sink := &recordingSink{}
			w := daemon.NewWatcherWithClock(daemon.DefaultWatcherConfig(), service,
				policy.DefaultUsagePolicy(), policy.NewRegistry(), sink,
				func() time.Time { return now }, zap.NewNop())

			w.CheckLimits(ctx)
			w.CheckLimits(ctx)

			Expect(sink.alerts).To(HaveLen(1))
			Expect(sink.alerts[0].Key).To(Equal("category:games"))
		})
	})
})
