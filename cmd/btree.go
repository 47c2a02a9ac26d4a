package cmd

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/apfsdev/btreeengine/internal/blockdev"
	"github.com/apfsdev/btreeengine/internal/btree"
	"github.com/apfsdev/btreeengine/internal/objects"
	"github.com/apfsdev/btreeengine/internal/omap"
	"github.com/apfsdev/btreeengine/internal/types"
)

var (
	btreeImagePath string
	btreeBlockSize uint32
	btreeBlockAddr int64
	btreeOmapRoot  int64
	btreeOID       uint64
	btreeXID       uint64
)

var btreeCmd = &cobra.Command{
	Use:   "btree",
	Short: "Inspect B-tree nodes and object maps",
}

var btreeNodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Parse and print a single node from a raw image",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := blockdev.OpenFileDevice(btreeImagePath, btreeBlockSize, true)
		if err != nil {
			return fmt.Errorf("opening image: %w", err)
		}
		defer device.Close()

		raw, err := device.ReadBlock(types.Paddr(btreeBlockAddr))
		if err != nil {
			return fmt.Errorf("reading block %d: %w", btreeBlockAddr, err)
		}

		node, err := btree.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing node: %w", err)
		}

		printNode(node)
		return nil
	},
}

var btreeOmapCmd = &cobra.Command{
	Use:   "omap-lookup",
	Short: "Resolve an (oid, xid) pair through an object map",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := blockdev.OpenFileDevice(btreeImagePath, btreeBlockSize, true)
		if err != nil {
			return fmt.Errorf("opening image: %w", err)
		}
		defer device.Close()

		raw, err := device.ReadBlock(types.Paddr(btreeOmapRoot))
		if err != nil {
			return fmt.Errorf("reading omap root %d: %w", btreeOmapRoot, err)
		}
		root, err := btree.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing omap root: %w", err)
		}

		m := omap.New(root, device)
		if GetVerbose() {
			entry, err := m.LookupEntry(types.OidT(btreeOID), types.XidT(btreeXID))
			if err != nil {
				return fmt.Errorf("omap lookup: %w", err)
			}
			fmt.Printf("oid %d at xid %d -> paddr %d size=%d flags=0x%x deleted=%v encrypted=%v\n",
				btreeOID, btreeXID, entry.PhysicalAddress(), entry.Size(), entry.Flags(),
				entry.IsDeleted(), entry.IsEncrypted())
			return nil
		}

		paddr, err := m.Lookup(types.OidT(btreeOID), types.XidT(btreeXID))
		if err != nil {
			return fmt.Errorf("omap lookup: %w", err)
		}

		fmt.Printf("oid %d at xid %d -> paddr %d\n", btreeOID, btreeXID, paddr)
		return nil
	},
}

var btreeDemoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Build a synthetic in-memory object map and look up an entry",
	Long: `demo builds a tiny in-memory container with a single root-and-leaf
object map node, tagged with a freshly generated container UUID, inserts
one (oid, xid) -> paddr mapping, and resolves it. There is no real disk
image involved; it exercises the engine end to end without one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		containerID := uuid.New()
		fmt.Printf("synthetic container %s\n", containerID)

		const nodeSize = 4096
		device := blockdev.NewMemDevice(nodeSize)
		root, err := buildDemoOmapRoot(nodeSize)
		if err != nil {
			return err
		}

		const demoOID, demoXID, demoAddr = 42, 1, 7
		key := types.Key{Id: demoOID, Xid: demoXID}
		keyBytes := make([]byte, 16)
		binary.LittleEndian.PutUint64(keyBytes[0:8], demoOID)
		binary.LittleEndian.PutUint64(keyBytes[8:16], demoXID)
		valBytes := make([]byte, 16)
		binary.LittleEndian.PutUint64(valBytes[8:16], demoAddr)
		if err := root.Insert(key, types.KindOmap, keyBytes, valBytes, false); err != nil {
			return fmt.Errorf("inserting demo entry: %w", err)
		}

		finalized, err := root.Finalize()
		if err != nil {
			return fmt.Errorf("finalizing demo node: %w", err)
		}
		device.SetBlock(0, finalized)

		reparsed, err := btree.Parse(finalized)
		if err != nil {
			return fmt.Errorf("reparsing demo node: %w", err)
		}

		m := omap.New(reparsed, device)
		paddr, err := m.Lookup(demoOID, demoXID)
		if err != nil {
			return fmt.Errorf("demo lookup: %w", err)
		}

		fmt.Printf("oid %d at xid %d -> paddr %d\n", demoOID, demoXID, paddr)
		return nil
	},
}

func init() {
	btreeNodeCmd.Flags().StringVar(&btreeImagePath, "image", "", "path to a raw container image")
	btreeNodeCmd.Flags().Uint32Var(&btreeBlockSize, "block-size", 4096, "device block size in bytes")
	btreeNodeCmd.Flags().Int64Var(&btreeBlockAddr, "block", 0, "physical block address to parse")
	btreeNodeCmd.MarkFlagRequired("image")

	btreeOmapCmd.Flags().StringVar(&btreeImagePath, "image", "", "path to a raw container image")
	btreeOmapCmd.Flags().Uint32Var(&btreeBlockSize, "block-size", 4096, "device block size in bytes")
	btreeOmapCmd.Flags().Int64Var(&btreeOmapRoot, "root", 0, "physical block address of the object map root")
	btreeOmapCmd.Flags().Uint64Var(&btreeOID, "oid", 0, "object identifier to resolve")
	btreeOmapCmd.Flags().Uint64Var(&btreeXID, "xid", 0, "transaction identifier to resolve as of")
	btreeOmapCmd.MarkFlagRequired("image")
	btreeOmapCmd.MarkFlagRequired("oid")

	btreeCmd.AddCommand(btreeNodeCmd, btreeOmapCmd, btreeDemoCmd)
}

func printNode(n *btree.Node) {
	fmt.Printf("oid=%d flags=0x%04x level=%d nkeys=%d root=%v leaf=%v fixed_kv=%v\n",
		n.OID(), n.Flags(), n.Level(), n.KeyCount(), n.IsRoot(), n.IsLeaf(), n.HasFixedKVSize())
	if info, ok := n.InfoReader(); ok {
		fmt.Printf("  node_size=%d key_size=%d val_size=%d key_count=%d node_count=%d ghosts=%v hashed=%v physical=%v\n",
			info.NodeSize(), info.KeySize(), info.ValueSize(), info.KeyCount(), info.NodeCount(),
			info.AllowsGhosts(), info.IsHashed(), info.IsPhysical())
	}
}

// buildDemoOmapRoot constructs an empty root-and-leaf omap node with fixed
// 16-byte keys and values, ready for a single Insert.
func buildDemoOmapRoot(nodeSize int) (*btree.Node, error) {
	const nodeHeaderSize = 56
	const infoSize = 40
	const initialTocSlots = 8
	const kvoffEntrySize = 4

	raw := make([]byte, nodeSize)
	tocLen := initialTocSlots * kvoffEntrySize
	dataLen := nodeSize - nodeHeaderSize
	freeLen := dataLen - infoSize - tocLen

	binary.LittleEndian.PutUint16(raw[32:34], types.BtnodeRoot|types.BtnodeLeaf|types.BtnodeFixedKvSize)
	binary.LittleEndian.PutUint16(raw[34:36], 0)
	binary.LittleEndian.PutUint32(raw[36:40], 0)
	putNloc(raw[40:44], 0, uint16(tocLen))
	putNloc(raw[44:48], 0, uint16(freeLen))
	putNloc(raw[48:52], types.BtoffInvalid, 0)
	putNloc(raw[52:56], types.BtoffInvalid, 0)

	tail := raw[len(raw)-infoSize:]
	binary.LittleEndian.PutUint32(tail[8:12], 16)
	binary.LittleEndian.PutUint32(tail[12:16], 16)

	if err := objects.Recompute(&types.ObjPhysT{}, raw); err != nil {
		return nil, err
	}
	return btree.Parse(raw)
}

func putNloc(b []byte, off, length uint16) {
	binary.LittleEndian.PutUint16(b[0:2], off)
	binary.LittleEndian.PutUint16(b[2:4], length)
}
