// Package discovery lets players find referee servers on the local network.
//
// A server announces itself over UDP multicast and players listen for the
// announcements:
//
//	a, err := discovery.NewAnnouncer(discovery.DefaultAddress, discovery.Announcement{
//		URL:  "http://192.168.1.7:8080",
//		Name: "kitchen table",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	go a.Run(ctx)
//
//	l, err := discovery.Listen(discovery.DefaultAddress)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer l.Close()
//	entry, err := l.Find(ctx)
//
// Behavior:
//   - Announcements are JSON datagrams prefixed by a magic string; anything
//     else arriving on the port is dropped.
//   - A unicast address can be used instead of a multicast group, which is
//     what the tests do.
//   - Entries are delivered on a bounded channel; when nobody reads them the
//     newest are dropped.
package discovery
